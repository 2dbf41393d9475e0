package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

// Listing options, read from FeedPolicy.Options.
const (
	optItem       = "item"
	optLink       = "link"
	optTitle      = "title"
	optSummary    = "summary"
	optDate       = "date"
	optDateLayout = "dateLayout"
	optPages      = "pages"
	optPageParam  = "pageParam"
)

// ListingScanner crawls HTML index pages of sites without a feed. Each
// element matching the item selector becomes one entry.
type ListingScanner struct {
	client *http.Client
}

// NewListingScanner wires an HTTP client; nil means a 20s timeout client.
func NewListingScanner(client *http.Client) *ListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ListingScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (l *ListingScanner) Name() string {
	return domain.ScannerListing
}

// Scan walks up to the configured number of pages and deduplicates links.
func (l *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedEntry, error) {
	opts := listingOptions(req.Feed.Options)

	results := make([]domain.FeedEntry, 0)
	seen := map[string]struct{}{}

	for page := 1; page <= opts.pages; page++ {
		pageURL, err := buildPageURL(req.Feed.URL, opts.pageParam, page)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", req.Feed.Name, err)
		}

		doc, err := l.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", req.Feed.Name, err)
		}

		base, _ := url.Parse(pageURL)
		pageEntries := extractEntries(doc, base, opts, req.Feed.Location)
		if len(pageEntries) == 0 {
			break
		}
		for _, entry := range pageEntries {
			if _, ok := seen[entry.Link]; ok {
				continue
			}
			seen[entry.Link] = struct{}{}
			results = append(results, entry)
		}
	}

	return results, nil
}

type listingOpts struct {
	item, link, title, summary, date, dateLayout string
	pages                                        int
	pageParam                                    string
}

func listingOptions(raw map[string]string) listingOpts {
	opts := listingOpts{
		item:       "article",
		link:       "a[href]",
		dateLayout: time.RFC3339,
		pages:      1,
		pageParam:  "page",
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(raw[key]); v != "" {
			*dst = v
		}
	}
	set(&opts.item, optItem)
	set(&opts.link, optLink)
	set(&opts.title, optTitle)
	set(&opts.summary, optSummary)
	set(&opts.date, optDate)
	set(&opts.dateLayout, optDateLayout)
	set(&opts.pageParam, optPageParam)
	if n, err := strconv.Atoi(raw[optPages]); err == nil && n > 0 {
		opts.pages = n
	}
	return opts
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractEntries(doc *goquery.Document, base *url.URL, opts listingOpts, loc *time.Location) []domain.FeedEntry {
	var collected []domain.FeedEntry
	doc.Find(opts.item).Each(func(_ int, item *goquery.Selection) {
		entry, ok := parseEntry(item, base, opts, loc)
		if ok {
			collected = append(collected, entry)
		}
	})
	return collected
}

func parseEntry(item *goquery.Selection, base *url.URL, opts listingOpts, loc *time.Location) (domain.FeedEntry, bool) {
	link := item.Find(opts.link).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return domain.FeedEntry{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return domain.FeedEntry{}, false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}

	title := strings.TrimSpace(link.AttrOr("title", ""))
	if opts.title != "" {
		title = strings.TrimSpace(item.Find(opts.title).First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}

	var summary string
	if opts.summary != "" {
		summary = strings.TrimSpace(item.Find(opts.summary).First().Text())
	}

	return domain.FeedEntry{
		Title:       domain.NormalizeWhitespace(title),
		Link:        ref.String(),
		Description: domain.NormalizeWhitespace(summary),
		PublishedAt: parseDate(item, opts, loc),
	}, true
}

// parseDate prefers a datetime attribute, then the element text in dateLayout.
func parseDate(item *goquery.Selection, opts listingOpts, loc *time.Location) *time.Time {
	if opts.date == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	sel := item.Find(opts.date).First()

	candidates := []struct{ value, layout string }{
		{sel.AttrOr("datetime", ""), time.RFC3339},
		{strings.TrimSpace(sel.Text()), opts.dateLayout},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if t, err := time.ParseInLocation(c.layout, c.value, loc); err == nil {
			return &t
		}
	}
	return nil
}

func buildPageURL(base, param string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}
	if page <= 1 {
		return parsed.String(), nil
	}

	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
