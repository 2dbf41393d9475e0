package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

type stubFetcher struct {
	text  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, domain.FetchRequest) (string, error) {
	s.calls++
	return s.text, s.err
}

func failing() *stubFetcher {
	return &stubFetcher{err: errors.New("http fetch: failed after 3 attempts")}
}

func TestExtractUsesHTTPTier(t *testing.T) {
	t.Parallel()

	httpTier := &stubFetcher{text: "  Bài viết đầy đủ về công nghệ  mới nhất hôm nay "}
	browserTier := &stubFetcher{text: "browser text that should not be used"}
	engine := NewEngine(httpTier, browserTier, nil)

	res, err := engine.Extract(context.Background(), domain.WorkItem{URL: "https://x.test/a"})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceScrapedHTTP, res.Source)
	assert.Equal(t, "Bài viết đầy đủ về công nghệ mới nhất hôm nay", res.Text)
	assert.Equal(t, 0, browserTier.calls)
}

func TestExtractBrowserModeTriesBrowserFirst(t *testing.T) {
	t.Parallel()

	httpTier := &stubFetcher{text: "http text long enough to be viable here"}
	browserTier := &stubFetcher{text: "browser rendered text long enough to use"}
	engine := NewEngine(httpTier, browserTier, nil)

	res, err := engine.Extract(context.Background(), domain.WorkItem{URL: "https://x.test/a", ScrapingMode: domain.ScrapingBrowser})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceScrapedBrowser, res.Source)
	assert.Equal(t, 0, httpTier.calls)
}

func TestExtractFallsThroughToBrowserTier(t *testing.T) {
	t.Parallel()

	browserTier := &stubFetcher{text: "rendered by the headless browser tab"}
	engine := NewEngine(failing(), browserTier, nil)

	res, err := engine.Extract(context.Background(), domain.WorkItem{URL: "https://x.test/a"})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceScrapedBrowser, res.Source)
}

func TestExtractMinimumViability(t *testing.T) {
	t.Parallel()

	t.Run("19 characters rejected", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(&stubFetcher{text: strings.Repeat("a", 19)}, nil, nil)
		_, err := engine.Extract(context.Background(), domain.WorkItem{URL: "https://x.test/a"})
		assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	})

	t.Run("20 characters accepted", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(&stubFetcher{text: strings.Repeat("a", 20)}, nil, nil)
		res, err := engine.Extract(context.Background(), domain.WorkItem{URL: "https://x.test/a"})
		require.NoError(t, err)
		assert.Equal(t, 20, res.Length)
		assert.Equal(t, domain.SourceScrapedHTTP, res.Source)
	})
}

func TestExtractFallbackPriority(t *testing.T) {
	t.Parallel()

	engine := NewEngine(failing(), nil, nil)
	item := domain.WorkItem{
		URL:                 "https://x.test/a",
		FallbackContent:     strings.Repeat("c", 150),
		FallbackDescription: strings.Repeat("d", 80),
	}

	res, err := engine.Extract(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFeedContent, res.Source)
	assert.Equal(t, 150, res.Length)
}

func TestFromFeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		description string
		wantSource  domain.ContentSource
		wantLength  int
		wantOK      bool
	}{
		{name: "long content wins", content: strings.Repeat("c", 100), description: strings.Repeat("d", 60), wantSource: domain.SourceFeedContent, wantLength: 100, wantOK: true},
		{name: "long description beats short content", content: strings.Repeat("c", 40), description: strings.Repeat("d", 50), wantSource: domain.SourceFeedDescription, wantLength: 50, wantOK: true},
		{name: "any content", content: "short", description: "tiny", wantSource: domain.SourceFeedContent, wantLength: 5, wantOK: true},
		{name: "viable description only", description: strings.Repeat("d", 25), wantSource: domain.SourceFeedDescription, wantLength: 25, wantOK: true},
		{name: "html stripped before measuring", content: "<p>" + strings.Repeat("x", 30) + "</p>", wantSource: domain.SourceFeedContent, wantLength: 30, wantOK: true},
		{name: "nothing usable", description: "tiny", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, ok := FromFeed(domain.WorkItem{FallbackContent: tt.content, FallbackDescription: tt.description})
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantLength, res.Length)
		})
	}
}

func TestExtractAllTiersExhausted(t *testing.T) {
	t.Parallel()

	engine := NewEngine(failing(), failing(), nil)
	_, err := engine.Extract(context.Background(), domain.WorkItem{URL: "https://x.test/a"})
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
