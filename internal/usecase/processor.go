package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Outcome is the terminal state of one ProcessNext call.
type Outcome string

const (
	OutcomeIdle            Outcome = "idle"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeNoContent       Outcome = "no_content"
	OutcomeSummarizeFailed Outcome = "summarize_failed"
	OutcomeStoreFailed     Outcome = "store_failed"
	OutcomeNotifyFailed    Outcome = "notify_failed"
	OutcomeDone            Outcome = "done"
	OutcomeDropped         Outcome = "dropped"
)

// ProcessorDeps wires all driven adapters into the job processor.
type ProcessorDeps struct {
	Queue      ports.JobQueue
	Gate       *dedup.Gate
	Store      ports.ArticleStore
	Extractor  ports.ContentExtractor
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Metrics    ports.PipelineMetrics
	Logger     *slog.Logger
}

// Processor runs a single queued item from dequeue to notification.
type Processor struct {
	queue      ports.JobQueue
	gate       *dedup.Gate
	store      ports.ArticleStore
	extractor  ports.ContentExtractor
	summarizer ports.Summarizer
	notifier   ports.Notifier
	metrics    ports.PipelineMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewProcessor constructs the orchestration component. Notifier may be nil,
// in which case articles are stored with notification_sent left false.
func NewProcessor(deps ProcessorDeps) *Processor {
	p := &Processor{
		queue:      deps.Queue,
		gate:       deps.Gate,
		store:      deps.Store,
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ProcessNext dequeues one item and drives it to a terminal outcome. The
// returned error explains a failed outcome; the caller keeps polling either
// way. Panics are recovered and reported as OutcomeDropped.
func (p *Processor) ProcessNext(ctx context.Context) (outcome Outcome, err error) {
	item, ok, err := p.queue.Dequeue(ctx)
	switch {
	case errors.Is(err, domain.ErrMalformedJob):
		p.logger.Warn("dropping malformed job", "error", err)
		p.metrics.JobFinished(string(OutcomeDropped), 0)
		return OutcomeDropped, nil
	case err != nil:
		return OutcomeIdle, fmt.Errorf("dequeue job: %w", err)
	case !ok:
		return OutcomeIdle, nil
	}

	start := p.now()
	log := p.logger.With("url", item.URL, "feed", item.FeedName)
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
			outcome, err = OutcomeDropped, fmt.Errorf("process %s: panic: %v", item.URL, r)
		}
		p.metrics.JobFinished(string(outcome), p.now().Sub(start))
		log.Info("job finished", "outcome", outcome)
	}()

	return p.process(ctx, item, log)
}

func (p *Processor) process(ctx context.Context, item domain.WorkItem, log *slog.Logger) (Outcome, error) {
	if p.gate.Exists(ctx, item.URL) {
		return OutcomeDuplicate, nil
	}

	content, err := p.extractor.Extract(ctx, item)
	if err != nil {
		return OutcomeNoContent, err
	}
	p.metrics.ContentExtracted(content.Source)
	log.Debug("content extracted", "source", content.Source, "length", content.Length)

	summary, err := p.summarizer.Summarize(ctx, content.Text, item.Title, item.Language)
	if err != nil {
		return OutcomeSummarizeFailed, fmt.Errorf("summarize %s: %w", item.URL, err)
	}

	article := domain.PersistedArticle{
		URL:         item.URL,
		FeedName:    item.FeedName,
		Category:    item.Category,
		Title:       item.Title,
		Content:     content.Text,
		Summary:     summary.Summary,
		Keywords:    summary.Keywords,
		PublishedAt: item.PublishedAt,
		ProcessedAt: p.now().UTC(),
	}

	inserted, err := p.gate.TryReserve(ctx, article)
	if err != nil {
		return OutcomeStoreFailed, err
	}
	if !inserted {
		log.Info("lost insert race, skipping notification")
		return OutcomeDuplicate, nil
	}

	if p.notifier == nil {
		return OutcomeDone, nil
	}

	note := domain.Notification{
		Title:    article.Title,
		Summary:  article.Summary,
		Keywords: article.Keywords,
		URL:      article.URL,
		Category: article.Category,
		FeedName: article.FeedName,
	}
	if err := p.notifier.Notify(ctx, note); err != nil {
		return OutcomeNotifyFailed, fmt.Errorf("notify %s: %w", item.URL, err)
	}

	if err := p.store.MarkNotified(ctx, item.URL); err != nil {
		log.Warn("mark notified failed", "error", err)
	}
	return OutcomeDone, nil
}
