package scheduler

import (
	"context"
	"time"

	"NewsDigest/internal/ports"
)

// ManualScheduler runs the job once, synchronously, inside Start.
type ManualScheduler struct{}

var _ ports.Scheduler = ManualScheduler{}

// Start runs job unless ctx is already done.
func (ManualScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	job(time.Now())
	return nil
}

// Stop is a no-op.
func (ManualScheduler) Stop(context.Context) error {
	return nil
}
