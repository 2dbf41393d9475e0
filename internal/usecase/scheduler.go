package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const stopTimeout = 30 * time.Second

// Scheduler wires the schedule driver with the discovery use case.
type Scheduler struct {
	driver    ports.Scheduler
	schedule  domain.Schedule
	discovery *Discovery
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring sweeps.
func NewScheduler(driver ports.Scheduler, schedule domain.Schedule, discovery *Discovery, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, schedule: schedule, discovery: discovery, logger: logger}
}

// Start registers the sweep with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.discovery == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.discovery.Sweep(ctx, trigger); err != nil {
			s.logger.Warn("sweep aborted", "error", err)
		}
	}

	s.logger.Info("discovery scheduled", "schedule", domain.ScheduleKind(s.schedule))
	if err := s.driver.Start(ctx, job); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Run starts the driver and blocks until ctx is done. A manual schedule
// returns as soon as its single sweep finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	if _, manual := s.schedule.(domain.ManualSchedule); manual {
		return nil
	}

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}
