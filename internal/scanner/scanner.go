package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"NewsDigest/internal/domain"
)

// Request is one scan of one feed. Now is the sweep time.
type Request struct {
	Feed domain.FeedPolicy
	Now  time.Time
}

// Scanner reads the current entries of a feed in feed order.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.FeedEntry, error)
}

// Registry maps scanner names, as used in feed config, to strategies.
// Names are case-insensitive.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds a registry holding scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: make(map[string]Scanner, len(scanners))}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy under its Name.
func (r *Registry) Register(s Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[strings.ToLower(s.Name())] = s
}

// Resolve finds the strategy a feed asks for.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if s, ok := r.scanners[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown scanner %q (registered: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
