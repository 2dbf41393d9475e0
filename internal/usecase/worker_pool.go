package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/ports"
)

// JobProcessor is the single-item step a worker loop repeats.
type JobProcessor interface {
	ProcessNext(ctx context.Context) (Outcome, error)
}

// WorkerPool runs N independent poll loops over one processor.
type WorkerPool struct {
	processor JobProcessor
	workers   int
	ticks     func() ports.TickSource
	logger    *slog.Logger
}

// NewWorkerPool builds a pool; each worker gets its own tick source from ticks.
func NewWorkerPool(processor JobProcessor, workers int, ticks func() ports.TickSource, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{processor: processor, workers: workers, ticks: ticks, logger: logger}
}

// Run blocks until ctx is cancelled. Each worker processes one item, then
// waits for its next tick. A started job is not cancelled by ctx; shutdown
// waits for it to reach a terminal outcome.
func (w *WorkerPool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)

	for i := 0; i < w.workers; i++ {
		id := uuid.NewString()
		g.Go(func() error {
			w.loop(ctx, w.logger.With("worker", id))
			return nil
		})
	}

	return g.Wait()
}

func (w *WorkerPool) loop(ctx context.Context, logger *slog.Logger) {
	ticks := w.ticks()
	defer ticks.Stop()

	logger.Info("worker started")
	defer logger.Info("worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		outcome, err := w.processor.ProcessNext(context.WithoutCancel(ctx))
		if err != nil {
			logger.Warn("job failed", "outcome", outcome, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticks.Ticks():
		}
	}
}

// Drain processes items until the queue reports idle and returns the
// outcome counts. Used for one-shot runs.
func Drain(ctx context.Context, processor JobProcessor, logger *slog.Logger) (map[Outcome]int, error) {
	counts := map[Outcome]int{}
	for {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		outcome, err := processor.ProcessNext(context.WithoutCancel(ctx))
		if outcome == OutcomeIdle {
			return counts, err
		}
		counts[outcome]++
		if err != nil && logger != nil {
			logger.Warn("job failed", "outcome", outcome, "error", err)
		}
	}
}
