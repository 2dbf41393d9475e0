package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/htmltext"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/retry"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxBodyBytes     = 5 << 20
	// Pages with more visible text than this are real articles even if they
	// mention a captcha somewhere.
	blockPageTextLimit = 1500
)

var accessDeniedMarkers = []string{
	"access denied",
	"403 forbidden",
	"just a moment...",
	"attention required",
	"captcha",
	"verify you are human",
	"enable javascript and cookies",
}

// HTTPFetcher is the direct-fetch scraping tier.
type HTTPFetcher struct {
	client    *http.Client
	retrier   *retry.Retrier
	limiter   *HostLimiter
	userAgent string
	logger    *slog.Logger
}

var _ ports.PageFetcher = (*HTTPFetcher)(nil)

// HTTPFetcherOptions tunes the HTTP tier; zero values mean defaults.
type HTTPFetcherOptions struct {
	Client    *http.Client
	Timeout   time.Duration
	Retrier   *retry.Retrier
	Limiter   *HostLimiter
	UserAgent string
}

// NewHTTPFetcher wires an HTTP client with a bounded timeout.
func NewHTTPFetcher(opts HTTPFetcherOptions, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	retrier := opts.Retrier
	if retrier == nil {
		retrier = retry.New(retry.DefaultPolicy(), nil, logger)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPFetcher{
		client:    client,
		retrier:   retrier,
		limiter:   opts.Limiter,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch downloads the page and returns the text of the first matching selector.
func (f *HTTPFetcher) Fetch(ctx context.Context, req domain.FetchRequest) (string, error) {
	var text string
	err := f.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		got, err := f.fetchOnce(ctx, req)
		if err != nil {
			f.logger.Debug("http fetch attempt failed", "url", req.URL, "attempt", attempt, "error", err)
			return err
		}
		text = got
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("http fetch %s: %w", req.URL, err)
	}
	return text, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, req domain.FetchRequest) (string, error) {
	if err := f.limiter.Wait(ctx, req.URL); err != nil {
		return "", backoff.Permanent(fmt.Errorf("rate limit: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	f.setBrowserHeaders(httpReq, req.Language)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := fmt.Errorf("unexpected status %s", resp.Status)
		switch {
		case resp.StatusCode == http.StatusForbidden:
			return "", fmt.Errorf("%w: %s", domain.ErrAccessDenied, resp.Status)
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
			return "", statusErr
		default:
			return "", backoff.Permanent(statusErr)
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	if isBlockPage(doc) {
		return "", domain.ErrAccessDenied
	}

	text := SelectText(doc, req.Selector)
	if text == "" {
		return "", backoff.Permanent(fmt.Errorf("no selector matched: %w", domain.ErrContentTooShort))
	}
	return text, nil
}

func (f *HTTPFetcher) setBrowserHeaders(req *http.Request, lang domain.Language) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	if lang == domain.LanguageEnglish {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	} else {
		req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en-US;q=0.8,en;q=0.7")
	}
}

// SelectText returns normalized text of the first candidate selector with content.
func SelectText(doc *goquery.Document, selector string) string {
	for _, candidate := range htmltext.Candidates(selector) {
		sel := doc.Find(candidate).First()
		if sel.Length() == 0 {
			continue
		}
		sel.Find("script, style, noscript, iframe, svg").Remove()
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			continue
		}
		if text := htmltext.FromHTML(markup); text != "" {
			return text
		}
	}
	return ""
}

func isBlockPage(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	if containsMarker(title) {
		return true
	}
	body := domain.NormalizeWhitespace(doc.Find("body").Text())
	if utf8.RuneCountInString(body) > blockPageTextLimit {
		return false
	}
	return containsMarker(strings.ToLower(body))
}

func containsMarker(text string) bool {
	for _, marker := range accessDeniedMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// IsAccessDenied reports whether err came from a block page or a 403.
func IsAccessDenied(err error) bool {
	return errors.Is(err, domain.ErrAccessDenied)
}
