// Package extraction resolves work items to article text through layered tiers:
// HTTP scraping, headless-browser scraping and finally feed-supplied text.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/htmltext"
	"NewsDigest/internal/ports"
)

const (
	// MinViableLength is the shortest scraped text accepted, in characters.
	MinViableLength = 20

	preferredContentLength     = 100
	preferredDescriptionLength = 50
)

// Engine chooses tiers by scraping mode and falls back to feed text.
type Engine struct {
	httpTier    ports.PageFetcher
	browserTier ports.PageFetcher
	logger      *slog.Logger
}

var _ ports.ContentExtractor = (*Engine)(nil)

// NewEngine wires the scraping tiers. browserTier may be nil when no
// debugging endpoint is configured.
func NewEngine(httpTier, browserTier ports.PageFetcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{httpTier: httpTier, browserTier: browserTier, logger: logger}
}

type tier struct {
	fetcher ports.PageFetcher
	source  domain.ContentSource
}

func (e *Engine) tiers(mode domain.ScrapingMode) []tier {
	httpTier := tier{fetcher: e.httpTier, source: domain.SourceScrapedHTTP}
	browserTier := tier{fetcher: e.browserTier, source: domain.SourceScrapedBrowser}

	ordered := []tier{httpTier, browserTier}
	if mode == domain.ScrapingBrowser {
		ordered = []tier{browserTier, httpTier}
	}

	out := ordered[:0]
	for _, t := range ordered {
		if t.fetcher != nil {
			out = append(out, t)
		}
	}
	return out
}

// Extract returns the first viable text, or ErrExtractionFailed.
func (e *Engine) Extract(ctx context.Context, item domain.WorkItem) (domain.ExtractionResult, error) {
	req := domain.FetchRequest{URL: item.URL, Selector: item.Selector, Language: item.Language}

	for _, t := range e.tiers(item.ScrapingMode) {
		if err := ctx.Err(); err != nil {
			return domain.ExtractionResult{}, fmt.Errorf("extract %s: %w", item.URL, err)
		}

		text, err := t.fetcher.Fetch(ctx, req)
		if err != nil {
			level := slog.LevelWarn
			if IsAccessDenied(err) {
				level = slog.LevelInfo
			}
			e.logger.Log(ctx, level, "scraping tier failed", "url", item.URL, "tier", t.source, "error", err)
			continue
		}

		res := domain.NewExtractionResult(text, t.source)
		if res.Length < MinViableLength {
			e.logger.Info("scraped text below minimum", "url", item.URL, "tier", t.source, "length", res.Length)
			continue
		}
		return res, nil
	}

	if res, ok := FromFeed(item); ok {
		e.logger.Info("using feed-supplied text", "url", item.URL, "source", res.Source, "length", res.Length)
		return res, nil
	}

	return domain.ExtractionResult{}, fmt.Errorf("extract %s: %w", item.URL, domain.ErrExtractionFailed)
}

// FromFeed picks feed-supplied text in priority order: long content, long
// description, any content, then any viable description.
func FromFeed(item domain.WorkItem) (domain.ExtractionResult, bool) {
	content := htmltext.FromHTML(item.FallbackContent)
	description := htmltext.FromHTML(item.FallbackDescription)
	contentLen := utf8.RuneCountInString(content)
	descriptionLen := utf8.RuneCountInString(description)

	switch {
	case contentLen >= preferredContentLength:
		return domain.NewExtractionResult(content, domain.SourceFeedContent), true
	case descriptionLen >= preferredDescriptionLength:
		return domain.NewExtractionResult(description, domain.SourceFeedDescription), true
	case contentLen > 0:
		return domain.NewExtractionResult(content, domain.SourceFeedContent), true
	case descriptionLen >= MinViableLength:
		return domain.NewExtractionResult(description, domain.SourceFeedDescription), true
	}
	return domain.ExtractionResult{}, false
}
