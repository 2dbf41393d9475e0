package browser

import (
	"context"
	"fmt"
	"sync"
)

// SessionState is the lifecycle of the cached control session.
type SessionState int

const (
	StateUnconnected SessionState = iota
	StateConnected
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unconnected"
	}
}

// Session owns the process-local handle to a debugging endpoint. It is
// probed lazily on Acquire and re-probed after Invalidate.
type Session struct {
	control *Control

	mu      sync.Mutex
	state   SessionState
	version Version
}

// NewSession starts Unconnected.
func NewSession(control *Control) *Session {
	return &Session{control: control}
}

// Acquire returns the endpoint's version, probing it unless already Connected.
func (s *Session) Acquire(ctx context.Context) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConnected {
		return s.version, nil
	}

	v, err := s.control.Version(ctx)
	if err != nil {
		s.state = StateFailed
		return Version{}, fmt.Errorf("acquire browser session: %w", err)
	}
	s.state = StateConnected
	s.version = v
	return v, nil
}

// Invalidate drops the cached handle so the next Acquire re-establishes it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.version = Version{}
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
