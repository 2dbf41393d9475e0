package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/htmltext"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/retry"
)

const tabCloseTimeout = 5 * time.Second

// Options tunes protocol timeouts; zero values mean defaults.
type Options struct {
	CommandTimeout time.Duration
	LoadTimeout    time.Duration
	SettleDelay    time.Duration
	HTTPClient     *http.Client
	Retrier        *retry.Retrier
}

func (o Options) withDefaults() Options {
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 15 * time.Second
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	return o
}

// Fetcher is the browser scraping tier.
type Fetcher struct {
	control *Control
	session *Session
	retrier *retry.Retrier
	opts    Options
	logger  *slog.Logger
}

var _ ports.PageFetcher = (*Fetcher)(nil)

// NewFetcher builds a tier against the debugging endpoint, e.g. http://chrome:9222.
func NewFetcher(endpoint string, opts Options, logger *slog.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	control, err := NewControl(endpoint, opts.HTTPClient, logger)
	if err != nil {
		return nil, err
	}
	retrier := opts.Retrier
	if retrier == nil {
		retrier = retry.New(retry.DefaultPolicy(), nil, logger)
	}
	return &Fetcher{
		control: control,
		session: NewSession(control),
		retrier: retrier,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Probe validates connectivity; used at startup.
func (f *Fetcher) Probe(ctx context.Context) (Version, error) {
	return f.session.Acquire(ctx)
}

// Session exposes the cached control session.
func (f *Fetcher) Session() *Session {
	return f.session
}

// Fetch renders the page in a fresh tab and returns the selected text.
// After the final failed attempt the session is invalidated, unless the page
// rendered but held no matching content.
func (f *Fetcher) Fetch(ctx context.Context, req domain.FetchRequest) (string, error) {
	var text string
	err := f.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		got, err := f.attempt(ctx, req)
		if err != nil {
			f.logger.Debug("browser attempt failed", "url", req.URL, "attempt", attempt, "error", err)
			return err
		}
		text = got
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrContentTooShort) {
			f.session.Invalidate()
		}
		return "", fmt.Errorf("browser fetch %s: %w", req.URL, err)
	}
	return text, nil
}

func (f *Fetcher) attempt(ctx context.Context, req domain.FetchRequest) (string, error) {
	if _, err := f.session.Acquire(ctx); err != nil {
		return "", err
	}

	var text string
	err := f.withTab(ctx, func(ctx context.Context, conn *Conn) error {
		if err := enableDomains(ctx, conn); err != nil {
			return err
		}
		if err := f.navigate(ctx, conn, req.URL); err != nil {
			return err
		}
		got, err := extract(ctx, conn, req.Selector)
		if err != nil {
			return err
		}
		text = got
		return nil
	})
	return text, err
}

// withTab is the only way to obtain a tab: it is closed, along with its
// connection, on every return path.
func (f *Fetcher) withTab(ctx context.Context, fn func(ctx context.Context, conn *Conn) error) error {
	tab, err := f.control.NewTab(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tabCloseTimeout)
		defer cancel()
		f.control.CloseTab(closeCtx, tab.ID)
	}()

	conn, err := Dial(ctx, tab.WebSocketURL, f.opts.CommandTimeout, f.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			f.logger.Debug("close tab connection", "tab", tab.ID, "error", err)
		}
	}()

	return fn(ctx, conn)
}

func enableDomains(ctx context.Context, conn *Conn) error {
	for _, method := range []string{"Runtime.enable", "Page.enable", "DOM.enable"} {
		if err := conn.Send(ctx, method, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) navigate(ctx context.Context, conn *Conn, target string) error {
	conn.DrainEvents()

	var nav struct {
		FrameID   string `json:"frameId"`
		ErrorText string `json:"errorText"`
	}
	if err := conn.Send(ctx, "Page.navigate", map[string]string{"url": target}, &nav); err != nil {
		return err
	}
	if nav.ErrorText != "" {
		return fmt.Errorf("Page.navigate: %s", nav.ErrorText)
	}

	if !conn.WaitEvent(ctx, "Page.loadEventFired", f.opts.LoadTimeout) {
		f.logger.Info("page load not confirmed, reading partial content", "url", target, "waited", f.opts.LoadTimeout)
	}

	if f.opts.SettleDelay > 0 {
		if err := retry.SleepContext(ctx, f.opts.SettleDelay); err != nil {
			return err
		}
	}
	return nil
}

func extract(ctx context.Context, conn *Conn, selector string) (string, error) {
	var doc struct {
		Root struct {
			NodeID int64 `json:"nodeId"`
		} `json:"root"`
	}
	if err := conn.Send(ctx, "DOM.getDocument", map[string]int{"depth": 0}, &doc); err != nil {
		return "", err
	}

	for _, candidate := range htmltext.Candidates(selector) {
		var match struct {
			NodeID int64 `json:"nodeId"`
		}
		err := conn.Send(ctx, "DOM.querySelector", map[string]any{
			"nodeId":   doc.Root.NodeID,
			"selector": candidate,
		}, &match)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				continue
			}
			return "", err
		}
		if match.NodeID == 0 {
			continue
		}

		var outer struct {
			OuterHTML string `json:"outerHTML"`
		}
		if err := conn.Send(ctx, "DOM.getOuterHTML", map[string]int64{"nodeId": match.NodeID}, &outer); err != nil {
			return "", err
		}
		if text := htmltext.FromHTML(outer.OuterHTML); text != "" {
			return text, nil
		}
	}

	return "", backoff.Permanent(fmt.Errorf("no selector matched: %w", domain.ErrContentTooShort))
}
