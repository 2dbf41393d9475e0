package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client, "test:jobs"), mr
}

func TestQueueFIFO(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	published := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	first := domain.WorkItem{
		URL:          "https://x.test/a",
		FeedName:     "vnexpress",
		ScrapingMode: domain.ScrapingBrowser,
		Language:     domain.LanguageVietnamese,
		Title:        "Tin A",
		PublishedAt:  &published,
	}
	second := domain.WorkItem{URL: "https://x.test/b", Language: domain.LanguageEnglish}

	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.URL, got.URL)
	assert.Equal(t, domain.ScrapingBrowser, got.ScrapingMode)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(*got.PublishedAt))

	got, ok, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.URL, got.URL)
}

func TestQueueEmptyDequeueReturnsImmediately(t *testing.T) {
	q, _ := newTestQueue(t)

	_, ok, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueMalformedPayloadIsConsumed(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	_, err := mr.Lpush("test:jobs", "{not json")
	require.NoError(t, err)
	_, err = mr.Lpush("test:jobs", `{"title":"no url"}`)
	require.NoError(t, err)

	_, ok, err := q.Dequeue(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrMalformedJob)

	_, ok, err = q.Dequeue(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrMalformedJob)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueDuplicatesAreDeliveredTwice(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	item := domain.WorkItem{URL: "https://x.test/a"}
	require.NoError(t, q.Enqueue(ctx, item))
	require.NoError(t, q.Enqueue(ctx, item))

	for i := 0; i < 2; i++ {
		got, ok, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, item.URL, got.URL)
	}
}

func TestQueueUnavailable(t *testing.T) {
	q, mr := newTestQueue(t)
	mr.Close()

	_, _, err := q.Dequeue(context.Background())
	assert.Error(t, err)
	assert.Error(t, q.Ping(context.Background()))
}

func TestNewClientAcceptsURL(t *testing.T) {
	client, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, 2, client.Options().DB)

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}
