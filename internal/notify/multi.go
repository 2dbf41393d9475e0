// Package notify fans a notification out to every configured channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Named pairs a notifier with the channel name used in logs and errors.
type Named struct {
	Name     string
	Notifier ports.Notifier
}

// Multi delivers to every channel. It succeeds when at least one channel
// accepted the notification; otherwise the joined errors are returned.
type Multi struct {
	channels []Named
	logger   *slog.Logger
}

var _ ports.Notifier = (*Multi)(nil)

// NewMulti ignores entries with a nil notifier.
func NewMulti(logger *slog.Logger, channels ...Named) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]Named, 0, len(channels))
	for _, c := range channels {
		if c.Notifier != nil {
			kept = append(kept, c)
		}
	}
	return &Multi{channels: kept, logger: logger}
}

// Len is the number of active channels.
func (m *Multi) Len() int {
	return len(m.channels)
}

// Notify sends to all channels in order.
func (m *Multi) Notify(ctx context.Context, n domain.Notification) error {
	if len(m.channels) == 0 {
		return errors.New("no notification channels configured")
	}

	var errs []error
	delivered := 0
	for _, c := range m.channels {
		if err := c.Notifier.Notify(ctx, n); err != nil {
			m.logger.Warn("notification channel failed", "channel", c.Name, "url", n.URL, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}
