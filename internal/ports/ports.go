package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// FeedSource lists the entries a single configured feed currently exposes.
type FeedSource interface {
	FetchFeed(ctx context.Context, feed domain.FeedPolicy) ([]domain.FeedEntry, error)
}

// ArticleStore persists processed articles; InsertIfAbsent is the
// deduplication boundary and must be atomic.
type ArticleStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	InsertIfAbsent(ctx context.Context, article domain.PersistedArticle) (bool, error)
	MarkNotified(ctx context.Context, url string) error
}

// JobQueue hands work items from discovery to workers, at-least-once.
// Dequeue never blocks: ok is false when the queue is empty.
type JobQueue interface {
	Enqueue(ctx context.Context, item domain.WorkItem) error
	Dequeue(ctx context.Context) (item domain.WorkItem, ok bool, err error)
}

// ContentExtractor resolves a work item to article text.
type ContentExtractor interface {
	Extract(ctx context.Context, item domain.WorkItem) (domain.ExtractionResult, error)
}

// PageFetcher is one scraping tier: it returns normalized article text for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, req domain.FetchRequest) (string, error)
}

// CompletionRequest is the provider-neutral shape of a model call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Completer sends a prompt to an AI model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Summarizer turns article content into a summary and keywords.
type Summarizer interface {
	Summarize(ctx context.Context, content, title string, lang domain.Language) (domain.SummaryResult, error)
}

// Notifier delivers a finished article to a channel (Discord, Telegram, ...).
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Scheduler controls when discovery sweeps execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// TickSource paces a worker's poll loop.
type TickSource interface {
	Ticks() <-chan time.Time
	Stop()
}

// PipelineMetrics receives pipeline counters. Implementations must be safe
// for concurrent use.
type PipelineMetrics interface {
	FeedEntriesDiscovered(feed string, n int)
	ItemEnqueued(feed string)
	ContentExtracted(source domain.ContentSource)
	JobFinished(outcome string, elapsed time.Duration)
}
