package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>VnExpress</title>
  <item>
    <title> Giá vàng tăng </title>
    <link>https://vnexpress.net/gia-vang-1.html</link>
    <description>Giá vàng miếng tăng mạnh.</description>
    <pubDate>Mon, 19 Oct 2026 08:30:00 +0700</pubDate>
  </item>
  <item>
    <title>No link</title>
  </item>
  <item>
    <title>Undated</title>
    <link>https://vnexpress.net/undated-2.html</link>
  </item>
</channel>
</rss>`

func TestRSSScannerMapsItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprint(w, rssFixture)
	}))
	t.Cleanup(server.Close)

	s := NewRSSScanner(server.Client())
	entries, err := s.Scan(context.Background(), scanner.Request{Feed: domain.FeedPolicy{Name: "vnexpress", URL: server.URL}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Title != "Giá vàng tăng" || first.Link != "https://vnexpress.net/gia-vang-1.html" {
		t.Fatalf("unexpected entry: %+v", first)
	}
	if first.Description != "Giá vàng miếng tăng mạnh." {
		t.Fatalf("unexpected description: %q", first.Description)
	}
	if first.PublishedAt == nil {
		t.Fatalf("expected publish date")
	}
	want := time.Date(2026, 10, 19, 1, 30, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("published = %v, want %v", first.PublishedAt, want)
	}
	if entries[1].PublishedAt != nil {
		t.Fatalf("expected nil publish date for undated item")
	}
}

func TestRSSScannerRejectsGarbage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "not a feed")
	}))
	t.Cleanup(server.Close)

	_, err := NewRSSScanner(server.Client()).Scan(context.Background(), scanner.Request{Feed: domain.FeedPolicy{URL: server.URL}})
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

const listingPage1 = `<html><body>
<article class="item">
  <h3><a href="/news/a.html">Alpha story</a></h3>
  <p class="lead">Lead for alpha</p>
  <time datetime="2026-10-19T07:00:00+07:00">19/10/2026</time>
</article>
<article class="item">
  <h3><a href="https://other.test/b.html" title="Beta story">ignored text</a></h3>
  <span class="date">18/10/2026</span>
</article>
<article class="item"><h3>no anchor</h3></article>
</body></html>`

const listingPage2 = `<html><body>
<article class="item"><h3><a href="/news/a.html">Alpha story</a></h3></article>
<article class="item"><h3><a href="/news/c.html">Gamma story</a></h3></article>
</body></html>`

func TestListingScannerPaginatesAndDeduplicates(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		pages []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.RawQuery)
		mu.Unlock()
		switch r.URL.Query().Get("p") {
		case "":
			_, _ = fmt.Fprint(w, listingPage1)
		case "2":
			_, _ = fmt.Fprint(w, listingPage2)
		default:
			_, _ = fmt.Fprint(w, "<html><body></body></html>")
		}
	}))
	t.Cleanup(server.Close)

	feed := domain.FeedPolicy{
		Name: "listing",
		URL:  server.URL + "/latest",
		Options: map[string]string{
			"item":       "article.item",
			"summary":    ".lead",
			"date":       "time, .date",
			"dateLayout": "02/01/2006",
			"pages":      "5",
			"pageParam":  "p",
		},
	}

	entries, err := NewListingScanner(server.Client()).Scan(context.Background(), scanner.Request{Feed: feed})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pages) != 3 {
		t.Fatalf("expected 3 page requests (stop on empty page), got %v", pages)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 unique entries, got %d: %+v", len(entries), entries)
	}

	alpha := entries[0]
	if alpha.Link != server.URL+"/news/a.html" || alpha.Title != "Alpha story" || alpha.Description != "Lead for alpha" {
		t.Fatalf("unexpected alpha entry: %+v", alpha)
	}
	if alpha.PublishedAt == nil || !alpha.PublishedAt.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected alpha date: %v", alpha.PublishedAt)
	}

	beta := entries[1]
	if beta.Title != "Beta story" || beta.Link != "https://other.test/b.html" {
		t.Fatalf("unexpected beta entry: %+v", beta)
	}
	if beta.PublishedAt == nil || beta.PublishedAt.Day() != 18 {
		t.Fatalf("unexpected beta date: %v", beta.PublishedAt)
	}

	if entries[2].Link != server.URL+"/news/c.html" {
		t.Fatalf("unexpected gamma link: %s", entries[2].Link)
	}
}

func TestListingScannerHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	_, err := NewListingScanner(server.Client()).Scan(context.Background(), scanner.Request{Feed: domain.FeedPolicy{Name: "x", URL: server.URL}})
	if err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	got, err := buildPageURL("https://site.test/list?cat=1", "page", 1)
	if err != nil || got != "https://site.test/list?cat=1" {
		t.Fatalf("page 1: %s %v", got, err)
	}
	got, err = buildPageURL("https://site.test/list?cat=1", "page", 3)
	if err != nil || got != "https://site.test/list?cat=1&page=3" {
		t.Fatalf("page 3: %s %v", got, err)
	}
}

type stubScanner struct {
	name    string
	entries []domain.FeedEntry
	err     error
	got     scanner.Request
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.FeedEntry, error) {
	s.got = req
	return s.entries, s.err
}

func TestStrategySourceDispatchesByScanner(t *testing.T) {
	t.Parallel()

	rss := &stubScanner{name: "rss", entries: []domain.FeedEntry{{Link: "https://x.test/1"}}}
	reg := scanner.NewRegistry()
	reg.Register(rss)

	source := NewStrategySource(reg, nil)
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return fixed }

	entries, err := source.FetchFeed(context.Background(), domain.FeedPolicy{Name: "f", Scanner: "RSS"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 1 || rss.got.Feed.Name != "f" || !rss.got.Now.Equal(fixed) {
		t.Fatalf("unexpected dispatch: %+v %+v", entries, rss.got)
	}

	if _, err := source.FetchFeed(context.Background(), domain.FeedPolicy{Name: "f", Scanner: "atom"}); err == nil {
		t.Fatalf("expected unknown scanner error")
	}

	boom := errors.New("boom")
	rss.err = boom
	if _, err := source.FetchFeed(context.Background(), domain.FeedPolicy{Name: "f", Scanner: "rss"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped scanner error, got %v", err)
	}
}
