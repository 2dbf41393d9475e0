// Package scheduler turns a resolved domain.Schedule into a running driver.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// New picks the driver for schedule.
func New(schedule domain.Schedule, logger *slog.Logger) (ports.Scheduler, error) {
	switch s := schedule.(type) {
	case domain.IntervalSchedule:
		if s.Every <= 0 {
			return nil, fmt.Errorf("interval schedule needs a positive period")
		}
		return NewIntervalScheduler(s.Every), nil
	case domain.CronSchedule:
		return NewCronScheduler(s.Expr, s.Location, logger), nil
	case domain.ManualSchedule:
		return ManualScheduler{}, nil
	default:
		return nil, fmt.Errorf("unsupported schedule %s", domain.ScheduleKind(schedule))
	}
}

// Ticker is the production TickSource.
type Ticker struct {
	t *time.Ticker
}

var _ ports.TickSource = (*Ticker)(nil)

// NewTicker ticks every d.
func NewTicker(d time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(d)}
}

// Ticks returns the tick channel.
func (t *Ticker) Ticks() <-chan time.Time { return t.t.C }

// Stop releases the ticker.
func (t *Ticker) Stop() { t.t.Stop() }
