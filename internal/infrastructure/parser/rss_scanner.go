package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

const userAgent = "NewsDigest/1.0 (+https://github.com/newsdigest)"

// RSSScanner reads RSS, Atom and JSON feeds.
type RSSScanner struct {
	client *http.Client
}

// NewRSSScanner wires an HTTP client; nil means a 20s timeout client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return domain.ScannerRSS
}

// Scan fetches the feed and returns its items in feed order.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedEntry, error) {
	fp := gofeed.NewParser()
	fp.Client = s.client
	fp.UserAgent = userAgent

	feed, err := fp.ParseURLWithContext(req.Feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.Feed.URL, err)
	}

	entries := make([]domain.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if link == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}

		entries = append(entries, domain.FeedEntry{
			Title:       strings.TrimSpace(item.Title),
			Link:        link,
			Content:     item.Content,
			Description: item.Description,
			PublishedAt: published,
		})
	}
	return entries, nil
}
