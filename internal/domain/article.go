package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ScrapingMode selects the primary content acquisition tier for a feed.
type ScrapingMode string

const (
	ScrapingHTTP    ScrapingMode = "http"
	ScrapingBrowser ScrapingMode = "browser"
)

// ParseScrapingMode maps a config value to a ScrapingMode; empty means HTTP.
func ParseScrapingMode(value string) (ScrapingMode, error) {
	switch ScrapingMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScrapingHTTP:
		return ScrapingHTTP, nil
	case ScrapingBrowser:
		return ScrapingBrowser, nil
	default:
		return "", fmt.Errorf("unknown scraping mode %q", value)
	}
}

// Language of a feed. It drives request headers, prompts and parser heuristics.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

// ParseLanguage maps a config value to a Language; empty means Vietnamese.
func ParseLanguage(value string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(value))) {
	case "", LanguageVietnamese:
		return LanguageVietnamese, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	default:
		return "", fmt.Errorf("unknown language %q", value)
	}
}

// WorkItem is a discovered feed entry pending extraction and summarization.
// URL is its identity. It travels through the job queue as JSON.
type WorkItem struct {
	URL                 string       `json:"url"`
	FeedName            string       `json:"feed_name"`
	Category            string       `json:"category"`
	Selector            string       `json:"selector,omitempty"`
	ScrapingMode        ScrapingMode `json:"scraping_mode"`
	Language            Language     `json:"language"`
	FallbackContent     string       `json:"fallback_content,omitempty"`
	FallbackDescription string       `json:"fallback_description,omitempty"`
	Title               string       `json:"title"`
	PublishedAt         *time.Time   `json:"published_at,omitempty"`
}

// ContentSource records which tier produced the article text.
type ContentSource string

const (
	SourceScrapedHTTP     ContentSource = "scraped_http"
	SourceScrapedBrowser  ContentSource = "scraped_browser"
	SourceFeedContent     ContentSource = "feed_content"
	SourceFeedDescription ContentSource = "feed_description"
)

// ExtractionResult is the resolved article text for one job.
type ExtractionResult struct {
	Text   string
	Source ContentSource
	Length int
}

// NewExtractionResult normalizes text and sets Length in characters.
func NewExtractionResult(text string, source ContentSource) ExtractionResult {
	text = NormalizeWhitespace(text)
	return ExtractionResult{
		Text:   text,
		Source: source,
		Length: utf8.RuneCountInString(text),
	}
}

// NormalizeWhitespace collapses whitespace runs to a single space and trims.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SummaryResult is the parsed AI output. Both fields are non-empty.
type SummaryResult struct {
	Summary  string
	Keywords []string
}

// PersistedArticle is the stored record; URL is the primary key and the
// sole source of truth for deduplication.
type PersistedArticle struct {
	URL              string
	FeedName         string
	Category         string
	Title            string
	Content          string
	Summary          string
	Keywords         []string
	PublishedAt      *time.Time
	ProcessedAt      time.Time
	NotificationSent bool
}

// Notification is what a notifier receives for a finished article.
type Notification struct {
	Title    string
	Summary  string
	Keywords []string
	URL      string
	Category string
	FeedName string
}
