// Package app wires configuration to adapters and use cases.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/config"
	"NewsDigest/internal/dedup"
	"NewsDigest/internal/extraction"
	"NewsDigest/internal/infrastructure/browser"
	"NewsDigest/internal/infrastructure/discord"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/ml"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/queue"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/metrics"
	"NewsDigest/internal/notify"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/retry"
	"NewsDigest/internal/scanner"
	"NewsDigest/internal/summarize"
	"NewsDigest/internal/usecase"
)

const feedTimeout = 20 * time.Second

// Application owns the adapters opened for one command and closes them.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store   *storage.PostgresRepository
	queue   *queue.RedisQueue
	closers []func() error
}

// Status is a point-in-time view of the pipeline backlog.
type Status struct {
	QueueDepth int64
	Stored     int
	Notified   int
}

// New prepares an application; adapters are opened lazily per command.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: registry,
		metrics:  metrics.New(registry),
	}
}

// Close releases every adapter opened so far.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Migrate creates the articles table.
func (a *Application) Migrate(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("schema migrated")
	return nil
}

// Probe checks the browser debugging endpoint.
func (a *Application) Probe(ctx context.Context) (browser.Version, error) {
	if a.cfg.Browser.Endpoint == "" {
		return browser.Version{}, errors.New("browser endpoint is not configured")
	}
	fetcher, err := a.newBrowser()
	if err != nil {
		return browser.Version{}, err
	}
	return fetcher.Probe(ctx)
}

// Status reports queue depth and stored/notified counts.
func (a *Application) Status(ctx context.Context) (Status, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return Status{}, err
	}
	q, err := a.openQueue(ctx)
	if err != nil {
		return Status{}, err
	}

	depth, err := q.Len(ctx)
	if err != nil {
		return Status{}, err
	}
	stored, notified, err := store.Counts(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{QueueDepth: depth, Stored: stored, Notified: notified}, nil
}

// Discover runs discovery sweeps on the configured schedule until ctx is done.
func (a *Application) Discover(ctx context.Context) error {
	sched, err := a.buildScheduler(ctx)
	if err != nil {
		return err
	}
	return a.withMetrics(ctx, sched.Run)
}

// Work runs the worker pool until ctx is done. With drain set it processes
// until the queue is empty and returns.
func (a *Application) Work(ctx context.Context, drain bool) error {
	processor, err := a.buildProcessor(ctx)
	if err != nil {
		return err
	}

	if drain {
		counts, err := usecase.Drain(ctx, processor, a.component("worker"))
		a.logger.Info("queue drained", "outcomes", counts)
		return err
	}

	pool := a.buildPool(processor)
	return a.withMetrics(ctx, pool.Run)
}

// Run runs discovery and the worker pool side by side.
func (a *Application) Run(ctx context.Context) error {
	sched, err := a.buildScheduler(ctx)
	if err != nil {
		return err
	}
	processor, err := a.buildProcessor(ctx)
	if err != nil {
		return err
	}
	pool := a.buildPool(processor)

	return a.withMetrics(ctx, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return sched.Run(ctx) })
		g.Go(func() error { return pool.Run(ctx) })
		return g.Wait()
	})
}

func (a *Application) buildScheduler(ctx context.Context) (*usecase.Scheduler, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	q, err := a.openQueue(ctx)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: feedTimeout}
	registry := scanner.NewRegistry(parser.NewRSSScanner(client), parser.NewListingScanner(client))

	discovery := usecase.NewDiscovery(usecase.DiscoveryDeps{
		Source:  parser.NewStrategySource(registry, a.component("source")),
		Gate:    dedup.NewGate(store, a.component("dedup")),
		Queue:   q,
		Feeds:   a.cfg.FeedPolicies(),
		Metrics: a.metrics,
		Logger:  a.component("discovery"),
	})

	schedule := a.cfg.Scheduler.Schedule()
	driver, err := scheduler.New(schedule, a.component("scheduler"))
	if err != nil {
		return nil, err
	}
	return usecase.NewScheduler(driver, schedule, discovery, a.component("scheduler")), nil
}

func (a *Application) buildProcessor(ctx context.Context) (*usecase.Processor, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	q, err := a.openQueue(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := a.buildEngine(ctx)
	if err != nil {
		return nil, err
	}

	completer, err := a.buildCompleter()
	if err != nil {
		return nil, err
	}
	summarizer := summarize.NewService(completer, summarize.Options{
		Model:           a.cfg.AI.Model,
		Temperature:     a.cfg.AI.Temperature,
		MaxTokens:       a.cfg.AI.MaxTokens,
		MaxContentRunes: a.cfg.AI.MaxContentRunes,
	}, a.component("summarize"))

	return usecase.NewProcessor(usecase.ProcessorDeps{
		Queue:      q,
		Gate:       dedup.NewGate(store, a.component("dedup")),
		Store:      store,
		Extractor:  engine,
		Summarizer: summarizer,
		Notifier:   a.buildNotifier(),
		Metrics:    a.metrics,
		Logger:     a.component("processor"),
	}), nil
}

func (a *Application) buildPool(processor *usecase.Processor) *usecase.WorkerPool {
	interval := a.cfg.Worker.PollInterval
	ticks := func() ports.TickSource { return scheduler.NewTicker(interval) }
	return usecase.NewWorkerPool(processor, a.cfg.Worker.Count, ticks, a.component("worker"))
}

func (a *Application) buildEngine(ctx context.Context) (*extraction.Engine, error) {
	log := a.component("extraction")
	httpTier := extraction.NewHTTPFetcher(extraction.HTTPFetcherOptions{
		Timeout:   a.cfg.Scraping.Timeout,
		Retrier:   retry.New(retry.DefaultPolicy(), nil, log),
		Limiter:   extraction.NewHostLimiter(a.cfg.Scraping.HostRatePerSecond, a.cfg.Scraping.HostBurst),
		UserAgent: a.cfg.Scraping.UserAgent,
	}, log)

	// A nil *browser.Fetcher must not reach the engine as a non-nil interface.
	var browserTier ports.PageFetcher
	if a.cfg.Browser.Endpoint != "" {
		fetcher, err := a.newBrowser()
		if err != nil {
			return nil, err
		}
		version, err := fetcher.Probe(ctx)
		if err != nil {
			return nil, fmt.Errorf("browser probe: %w", err)
		}
		a.logger.Info("browser tier ready", "browser", version.Browser, "protocol", version.ProtocolVersion)
		browserTier = fetcher
	}

	engine := extraction.NewEngine(httpTier, browserTier, log)
	return engine, nil
}

func (a *Application) newBrowser() (*browser.Fetcher, error) {
	return browser.NewFetcher(a.cfg.Browser.Endpoint, browser.Options{
		CommandTimeout: a.cfg.Browser.CommandTimeout,
		LoadTimeout:    a.cfg.Browser.LoadTimeout,
		SettleDelay:    a.cfg.Browser.SettleDelay,
	}, a.component("browser"))
}

func (a *Application) buildCompleter() (ports.Completer, error) {
	ai := a.cfg.AI
	switch ai.Provider {
	case "ml":
		return ml.NewClient(ai.Endpoint, ai.APIKey, ai.Model, ai.Timeout)
	default:
		return llm.NewOpenAIClient(ai.Endpoint, ai.APIKey, ai.Model, ai.Timeout)
	}
}

// buildNotifier returns nil when no channel is configured.
func (a *Application) buildNotifier() ports.Notifier {
	var channels []notify.Named
	if d := a.cfg.Notifications.Discord; d.WebhookURL != "" {
		channels = append(channels, notify.Named{Name: "discord", Notifier: discord.NewNotifier(d.WebhookURL, d.Username)})
	}
	if tg := a.cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		channels = append(channels, notify.Named{Name: "telegram", Notifier: telegram.NewNotifier(tg.BotToken, tg.ChatID)})
	}

	multi := notify.NewMulti(a.component("notify"), channels...)
	if multi.Len() == 0 {
		a.logger.Warn("no notification channel configured; articles will be stored only")
		return nil
	}
	return multi
}

func (a *Application) openStore(ctx context.Context) (*storage.PostgresRepository, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.Database.DSN == "" {
		return nil, errors.New("database dsn is not configured")
	}
	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.store = storage.NewPostgresRepository(db)
	return a.store, nil
}

func (a *Application) openQueue(ctx context.Context) (*queue.RedisQueue, error) {
	if a.queue != nil {
		return a.queue, nil
	}
	if a.cfg.Queue.Addr == "" {
		return nil, errors.New("redis address is not configured")
	}
	client, err := queue.NewClient(a.cfg.Queue.Addr)
	if err != nil {
		return nil, err
	}
	q := queue.NewRedisQueue(client, a.cfg.Queue.Key)
	a.closers = append(a.closers, q.Close)
	if err := q.Ping(ctx); err != nil {
		return nil, err
	}
	a.queue = q
	return q, nil
}

// withMetrics runs fn alongside the /metrics listener when one is configured.
func (a *Application) withMetrics(ctx context.Context, fn func(context.Context) error) error {
	if a.cfg.Metrics.Addr == "" {
		return fn(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.Go(func() error { return metrics.Serve(runCtx, a.cfg.Metrics.Addr, a.registry, a.component("metrics")) })
	g.Go(func() error {
		defer cancel()
		return fn(runCtx)
	})
	return g.Wait()
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}
