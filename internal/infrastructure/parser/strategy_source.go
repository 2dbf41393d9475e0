package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// StrategySource implements FeedSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.FeedSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		now:      time.Now,
		logger:   log,
	}
}

// FetchFeed runs the scanner configured for feed.
func (s *StrategySource) FetchFeed(ctx context.Context, feed domain.FeedPolicy) ([]domain.FeedEntry, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(feed.Scanner)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
	}

	s.debug("scan feed", "feed", feed.Name, "scanner", strategy.Name(), "url", feed.URL)
	entries, err := strategy.Scan(ctx, scanner.Request{Feed: feed, Now: s.now()})
	if err != nil {
		return nil, fmt.Errorf("scan feed %s: %w", feed.Name, err)
	}

	s.debug("feed produced entries", "feed", feed.Name, "count", len(entries))
	return entries, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
