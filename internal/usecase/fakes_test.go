package usecase

import (
	"context"
	"sync"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type memStore struct {
	mu            sync.Mutex
	rows          map[string]domain.PersistedArticle
	inserts       int
	alwaysMissing bool
	insertErr     error
	markErr       error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]domain.PersistedArticle{}}
}

func (s *memStore) Exists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alwaysMissing {
		return false, nil
	}
	_, ok := s.rows[url]
	return ok, nil
}

func (s *memStore) InsertIfAbsent(_ context.Context, a domain.PersistedArticle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.rows[a.URL]; ok {
		return false, nil
	}
	s.rows[a.URL] = a
	s.inserts++
	return true, nil
}

func (s *memStore) MarkNotified(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	row, ok := s.rows[url]
	if ok && !row.NotificationSent {
		row.NotificationSent = true
		s.rows[url] = row
	}
	return nil
}

func (s *memStore) row(url string) (domain.PersistedArticle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[url]
	return row, ok
}

type memQueue struct {
	mu         sync.Mutex
	items      []domain.WorkItem
	dequeueErr []error
	enqueueErr error
}

func (q *memQueue) Enqueue(_ context.Context, item domain.WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.items = append(q.items, item)
	return nil
}

func (q *memQueue) Dequeue(context.Context) (domain.WorkItem, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.dequeueErr) > 0 {
		err := q.dequeueErr[0]
		q.dequeueErr = q.dequeueErr[1:]
		return domain.WorkItem{}, false, err
	}
	if len(q.items) == 0 {
		return domain.WorkItem{}, false, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true, nil
}

func (q *memQueue) snapshot() []domain.WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.WorkItem(nil), q.items...)
}

type stubExtractor struct {
	fn func(domain.WorkItem) (domain.ExtractionResult, error)
}

func (s stubExtractor) Extract(_ context.Context, item domain.WorkItem) (domain.ExtractionResult, error) {
	if s.fn != nil {
		return s.fn(item)
	}
	return domain.NewExtractionResult("Nội dung bài báo đủ dài để tóm tắt.", domain.SourceScrapedHTTP), nil
}

type stubSummarizer struct {
	err error
}

func (s stubSummarizer) Summarize(_ context.Context, _, title string, _ domain.Language) (domain.SummaryResult, error) {
	if s.err != nil {
		return domain.SummaryResult{}, s.err
	}
	return domain.SummaryResult{Summary: "Tóm tắt: " + title, Keywords: []string{"tin tức"}}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notes = append(n.notes, note)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notes)
}

type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   map[string]int
	sources    map[domain.ContentSource]int
	discovered map[string]int
	enqueued   map[string]int
}

var _ ports.PipelineMetrics = (*recordingMetrics)(nil)

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		outcomes:   map[string]int{},
		sources:    map[domain.ContentSource]int{},
		discovered: map[string]int{},
		enqueued:   map[string]int{},
	}
}

func (m *recordingMetrics) FeedEntriesDiscovered(feed string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discovered[feed] += n
}

func (m *recordingMetrics) ItemEnqueued(feed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued[feed]++
}

func (m *recordingMetrics) ContentExtracted(source domain.ContentSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source]++
}

func (m *recordingMetrics) JobFinished(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

type manualTicks struct {
	ch chan time.Time
}

func newManualTicks() *manualTicks {
	return &manualTicks{ch: make(chan time.Time)}
}

func (m *manualTicks) Ticks() <-chan time.Time { return m.ch }

func (m *manualTicks) Stop() {}
