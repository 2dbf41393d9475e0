// Package retry runs an operation with bounded attempts and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes the backoff schedule. The wait before attempt n+1 is
// BaseDelay * Factor^(n-1), capped at MaxDelay. No wait follows the last attempt.
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Factor        float64
	Randomization float64
}

// DefaultPolicy is shared by the scraping tiers: 3 attempts, 2s then 4s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Factor:      2,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext waits on a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy Policy
	sleep  Sleeper
	logger *slog.Logger
}

// New builds a Retrier. A nil sleeper leaves the waiting to the backoff timer.
func New(policy Policy, sleep Sleeper, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Factor <= 0 {
		policy.Factor = 2
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = backoff.DefaultMaxInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{policy: policy, sleep: sleep, logger: logger}
}

func (r *Retrier) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.Multiplier = r.policy.Factor
	b.RandomizationFactor = r.policy.Randomization
	b.MaxInterval = r.policy.MaxDelay
	return b
}

// Do calls op until it succeeds, returns a backoff.Permanent error, attempts
// run out or ctx is cancelled. A permanent error is returned unwrapped.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	var (
		attempt   int
		permanent error
	)
	operation := func() (struct{}, error) {
		attempt++
		err := op(ctx, attempt)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = perm.Err
		} else if err == nil && attempt > 1 {
			r.logger.Debug("operation succeeded after retry", "attempt", attempt)
		}
		return struct{}{}, err
	}

	var (
		b       backoff.BackOff = r.newBackOff()
		sleeper *sleepingBackOff
	)
	if r.sleep != nil {
		sleeper = &sleepingBackOff{inner: b, sleep: r.sleep, ctx: ctx}
		b = sleeper
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			if sleeper != nil {
				next = sleeper.last
			}
			r.logger.Debug("operation attempt failed",
				"attempt", attempt,
				"max_attempts", r.policy.MaxAttempts,
				"retry_in", next,
				"error", err)
		}),
	)
	switch {
	case err == nil:
		return nil
	case permanent != nil:
		return permanent
	case ctx.Err() != nil:
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	}
	return fmt.Errorf("failed after %d attempts: %w", attempt, err)
}

// sleepingBackOff performs the wait through a Sleeper and hands the retry
// loop a zero interval.
type sleepingBackOff struct {
	inner backoff.BackOff
	sleep Sleeper
	ctx   context.Context
	last  time.Duration
}

func (s *sleepingBackOff) Reset() { s.inner.Reset() }

func (s *sleepingBackOff) NextBackOff() time.Duration {
	next := s.inner.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	s.last = next
	if err := s.sleep(s.ctx, next); err != nil {
		return backoff.Stop
	}
	return 0
}
