package domain

import (
	"fmt"
	"strings"
	"time"
)

// Names of the built-in feed scanning strategies.
const (
	ScannerRSS     = "rss"
	ScannerListing = "listing"
)

// ParseScannerName normalizes a strategy name; empty means rss.
func ParseScannerName(value string) (string, error) {
	switch name := strings.ToLower(strings.TrimSpace(value)); name {
	case "":
		return ScannerRSS, nil
	case ScannerRSS, ScannerListing:
		return name, nil
	default:
		return "", fmt.Errorf("unknown scanner %q (want %s or %s)", value, ScannerRSS, ScannerListing)
	}
}

// FeedPolicy carries every per-feed knob the pipeline understands, so one
// discovery/processing path serves all feeds.
type FeedPolicy struct {
	Name         string
	URL          string
	Scanner      string
	Category     string
	Selector     string
	ScrapingMode ScrapingMode
	Language     Language
	TodayOnly    bool
	MaxArticles  int
	Location     *time.Location
	Options      map[string]string
}

// Accepts reports whether an entry published at publishedAt passes the
// today-only filter relative to now.
func (p FeedPolicy) Accepts(publishedAt *time.Time, now time.Time) bool {
	if !p.TodayOnly {
		return true
	}
	if publishedAt == nil {
		return false
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	y1, m1, d1 := publishedAt.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// WorkItem builds the queue payload for an entry of this feed.
func (p FeedPolicy) WorkItem(entry FeedEntry) WorkItem {
	return WorkItem{
		URL:                 entry.Link,
		FeedName:            p.Name,
		Category:            p.Category,
		Selector:            p.Selector,
		ScrapingMode:        p.ScrapingMode,
		Language:            p.Language,
		FallbackContent:     entry.Content,
		FallbackDescription: entry.Description,
		Title:               entry.Title,
		PublishedAt:         entry.PublishedAt,
	}
}

// FeedEntry is one item read from a feed or listing page.
type FeedEntry struct {
	Title       string
	Link        string
	Content     string
	Description string
	PublishedAt *time.Time
}

// FetchRequest asks a scraping tier for the article text behind URL.
type FetchRequest struct {
	URL      string
	Selector string
	Language Language
}
