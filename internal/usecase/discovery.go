package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// DiscoveryDeps wires the collaborators of a discovery sweep.
type DiscoveryDeps struct {
	Source  ports.FeedSource
	Gate    *dedup.Gate
	Queue   ports.JobQueue
	Feeds   []domain.FeedPolicy
	Metrics ports.PipelineMetrics
	Logger  *slog.Logger
}

// Discovery reads configured feeds and enqueues entries not yet stored.
type Discovery struct {
	source  ports.FeedSource
	gate    *dedup.Gate
	queue   ports.JobQueue
	feeds   []domain.FeedPolicy
	metrics ports.PipelineMetrics
	logger  *slog.Logger
}

// SweepStats summarizes one sweep across all feeds.
type SweepStats struct {
	Feeds         int
	FeedErrors    int
	Discovered    int
	Filtered      int
	Capped        int
	Known         int
	Enqueued      int
	EnqueueErrors int
}

// NewDiscovery constructs the discovery use case.
func NewDiscovery(deps DiscoveryDeps) *Discovery {
	d := &Discovery{
		source:  deps.Source,
		gate:    deps.Gate,
		queue:   deps.Queue,
		feeds:   deps.Feeds,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if d.metrics == nil {
		d.metrics = nopMetrics{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Sweep walks feeds one after another and their entries in feed order. A
// failing feed is logged and skipped; only cancellation aborts the sweep.
func (d *Discovery) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats
	for _, feed := range d.feeds {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("sweep: %w", err)
		}
		stats.Feeds++

		entries, err := d.source.FetchFeed(ctx, feed)
		if err != nil {
			stats.FeedErrors++
			d.logger.Warn("feed fetch failed", "feed", feed.Name, "error", err)
			continue
		}
		d.metrics.FeedEntriesDiscovered(feed.Name, len(entries))
		stats.Discovered += len(entries)

		accepted := 0
		for _, entry := range entries {
			if !feed.Accepts(entry.PublishedAt, now) {
				stats.Filtered++
				continue
			}
			if feed.MaxArticles > 0 && accepted >= feed.MaxArticles {
				stats.Capped++
				continue
			}
			accepted++

			if d.gate.Exists(ctx, entry.Link) {
				stats.Known++
				continue
			}

			if err := d.queue.Enqueue(ctx, feed.WorkItem(entry)); err != nil {
				stats.EnqueueErrors++
				d.logger.Warn("enqueue failed", "feed", feed.Name, "url", entry.Link, "error", err)
				continue
			}
			stats.Enqueued++
			d.metrics.ItemEnqueued(feed.Name)
			d.logger.Debug("item enqueued", "feed", feed.Name, "url", entry.Link)
		}
	}

	d.logger.Info("sweep finished",
		"feeds", stats.Feeds,
		"feed_errors", stats.FeedErrors,
		"discovered", stats.Discovered,
		"filtered", stats.Filtered,
		"capped", stats.Capped,
		"known", stats.Known,
		"enqueued", stats.Enqueued,
	)
	return stats, nil
}

type nopMetrics struct{}

func (nopMetrics) FeedEntriesDiscovered(string, int)     {}
func (nopMetrics) ItemEnqueued(string)                   {}
func (nopMetrics) ContentExtracted(domain.ContentSource) {}
func (nopMetrics) JobFinished(string, time.Duration)     {}
