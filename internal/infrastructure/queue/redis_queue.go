// Package queue hands work items from discovery to workers through a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// DefaultKey is the list items are pushed to.
const DefaultKey = "newsdigest:jobs"

// RedisQueue is an at-least-once FIFO: LPUSH on enqueue, RPOP on dequeue.
// There is no ack; a popped item belongs to its worker.
type RedisQueue struct {
	client *redis.Client
	key    string
}

var _ ports.JobQueue = (*RedisQueue)(nil)

// NewClient accepts host:port or a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// NewRedisQueue uses key, or DefaultKey when empty.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Enqueue serializes item as JSON and pushes it.
func (q *RedisQueue) Enqueue(ctx context.Context, item domain.WorkItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal work item: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", item.URL, err)
	}
	return nil
}

// Dequeue pops the oldest item without blocking. An empty list yields ok=false.
// A payload that does not decode is consumed and reported as ErrMalformedJob.
func (q *RedisQueue) Dequeue(ctx context.Context) (domain.WorkItem, bool, error) {
	payload, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.WorkItem{}, false, nil
	}
	if err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("dequeue: %w", err)
	}

	var item domain.WorkItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("%w: %v", domain.ErrMalformedJob, err)
	}
	if item.URL == "" {
		return domain.WorkItem{}, false, fmt.Errorf("%w: missing url", domain.ErrMalformedJob)
	}
	return item, true, nil
}

// Len reports the queue depth.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Ping checks connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
