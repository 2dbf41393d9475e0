// Package metrics exposes Prometheus counters for the digest pipeline.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const namespace = "newsdigest"

// Metrics implements ports.PipelineMetrics on a Prometheus registry.
type Metrics struct {
	discovered  *prometheus.CounterVec
	enqueued    *prometheus.CounterVec
	sources     *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

var _ ports.PipelineMetrics = (*Metrics)(nil)

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		discovered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_entries_discovered_total",
				Help:      "Feed entries read during discovery sweeps",
			},
			[]string{"feed"},
		),
		enqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_enqueued_total",
				Help:      "Work items pushed to the job queue",
			},
			[]string{"feed"},
		),
		sources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_extracted_total",
				Help:      "Successful extractions by content source",
			},
			[]string{"source"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Processed jobs by outcome",
			},
			[]string{"outcome"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of job processing in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
	}
}

// FeedEntriesDiscovered adds n entries read from feed.
func (m *Metrics) FeedEntriesDiscovered(feed string, n int) {
	m.discovered.WithLabelValues(feed).Add(float64(n))
}

// ItemEnqueued counts one work item pushed for feed.
func (m *Metrics) ItemEnqueued(feed string) {
	m.enqueued.WithLabelValues(feed).Inc()
}

// ContentExtracted counts one successful extraction.
func (m *Metrics) ContentExtracted(source domain.ContentSource) {
	m.sources.WithLabelValues(string(source)).Inc()
}

// JobFinished records a job outcome and its duration.
func (m *Metrics) JobFinished(outcome string, elapsed time.Duration) {
	m.outcomes.WithLabelValues(outcome).Inc()
	m.jobDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("metrics listener started", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics: %w", err)
		}
		return nil
	}
}
