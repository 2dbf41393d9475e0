package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
)

type stubSource struct {
	entries map[string][]domain.FeedEntry
	errs    map[string]error
	calls   []string
}

func (s *stubSource) FetchFeed(_ context.Context, feed domain.FeedPolicy) ([]domain.FeedEntry, error) {
	s.calls = append(s.calls, feed.Name)
	if err := s.errs[feed.Name]; err != nil {
		return nil, err
	}
	return s.entries[feed.Name], nil
}

func at(t time.Time) *time.Time { return &t }

func TestSweepFiltersCapsAndSkipsKnown(t *testing.T) {
	hcm, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	// 23:30 on the 19th in Ho Chi Minh City is still the 19th there but
	// 16:30 UTC; an entry at 18:00 UTC on the 18th is the 19th locally.
	now := time.Date(2026, 10, 19, 23, 30, 0, 0, hcm)

	feeds := []domain.FeedPolicy{
		{
			Name:         "vnexpress",
			Category:     "thoi-su",
			Selector:     ".fck_detail",
			ScrapingMode: domain.ScrapingHTTP,
			Language:     domain.LanguageVietnamese,
			TodayOnly:    true,
			MaxArticles:  2,
			Location:     hcm,
		},
		{Name: "broken"},
		{Name: "hn", Language: domain.LanguageEnglish, ScrapingMode: domain.ScrapingBrowser},
	}

	source := &stubSource{
		entries: map[string][]domain.FeedEntry{
			"vnexpress": {
				{Title: "A", Link: "https://vnexpress.net/a.html", Description: "mô tả", PublishedAt: at(time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC))},
				{Title: "Old", Link: "https://vnexpress.net/old.html", PublishedAt: at(time.Date(2026, 10, 18, 9, 0, 0, 0, hcm))},
				{Title: "Undated", Link: "https://vnexpress.net/undated.html"},
				{Title: "Known", Link: "https://vnexpress.net/known.html", PublishedAt: at(now.Add(-time.Hour))},
				{Title: "Capped", Link: "https://vnexpress.net/capped.html", PublishedAt: at(now.Add(-2 * time.Hour))},
			},
			"hn": {
				{Title: "Show HN", Link: "https://news.ycombinator.com/item?id=1", Content: "<p>body</p>"},
			},
		},
		errs: map[string]error{"broken": errors.New("dns failure")},
	}

	store := newMemStore()
	store.rows["https://vnexpress.net/known.html"] = domain.PersistedArticle{URL: "https://vnexpress.net/known.html"}
	queue := &memQueue{}
	metrics := newRecordingMetrics()

	d := NewDiscovery(DiscoveryDeps{
		Source:  source,
		Gate:    dedup.NewGate(store, logging.Discard()),
		Queue:   queue,
		Feeds:   feeds,
		Metrics: metrics,
		Logger:  logging.Discard(),
	})

	stats, err := d.Sweep(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, SweepStats{
		Feeds:      3,
		FeedErrors: 1,
		Discovered: 6,
		Filtered:   2,
		Capped:     1,
		Known:      1,
		Enqueued:   2,
	}, stats)
	assert.Equal(t, []string{"vnexpress", "broken", "hn"}, source.calls)

	items := queue.snapshot()
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "https://vnexpress.net/a.html", first.URL)
	assert.Equal(t, "vnexpress", first.FeedName)
	assert.Equal(t, "thoi-su", first.Category)
	assert.Equal(t, ".fck_detail", first.Selector)
	assert.Equal(t, domain.LanguageVietnamese, first.Language)
	assert.Equal(t, "mô tả", first.FallbackDescription)

	second := items[1]
	assert.Equal(t, domain.ScrapingBrowser, second.ScrapingMode)
	assert.Equal(t, "<p>body</p>", second.FallbackContent)

	assert.Equal(t, 5, metrics.discovered["vnexpress"])
	assert.Equal(t, 1, metrics.enqueued["hn"])
}

func TestSweepContinuesAfterEnqueueError(t *testing.T) {
	source := &stubSource{entries: map[string][]domain.FeedEntry{
		"f": {{Link: "https://x.test/1"}, {Link: "https://x.test/2"}},
	}}
	queue := &memQueue{enqueueErr: errors.New("redis down")}

	d := NewDiscovery(DiscoveryDeps{
		Source: source,
		Gate:   dedup.NewGate(newMemStore(), logging.Discard()),
		Queue:  queue,
		Feeds:  []domain.FeedPolicy{{Name: "f"}},
		Logger: logging.Discard(),
	})

	stats, err := d.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EnqueueErrors)
	assert.Zero(t, stats.Enqueued)
}

func TestSweepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &stubSource{}
	d := NewDiscovery(DiscoveryDeps{
		Source: source,
		Gate:   dedup.NewGate(newMemStore(), logging.Discard()),
		Queue:  &memQueue{},
		Feeds:  []domain.FeedPolicy{{Name: "f"}},
	})

	_, err := d.Sweep(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, source.calls)
}
