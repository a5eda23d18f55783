package memory

import (
	"context"
	"strconv"
	"sync"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// AnalyticsEventStore is an in-memory implementation of storage.AnalyticsEventStore.
type AnalyticsEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AnalyticsEvent // keyed by event_id
}

// NewAnalyticsEventStore creates a new in-memory analytics event store.
func NewAnalyticsEventStore() *AnalyticsEventStore {
	return &AnalyticsEventStore{
		data: make(map[string]*domain.AnalyticsEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *AnalyticsEventStore) Insert(_ context.Context, e *domain.AnalyticsEvent) error {
	if e == nil || e.EventID == "" || e.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[e.EventID] = copyEvent(e)
	return nil
}

// CountInRange counts events within [start, end).
func (s *AnalyticsEventStore) CountInRange(_ context.Context, startMs, endMs int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.data {
		if e.TimestampMs >= startMs && e.TimestampMs < endMs {
			count++
		}
	}
	return count, nil
}

// CountByNameInRange counts events with the given name within [start, end).
func (s *AnalyticsEventStore) CountByNameInRange(_ context.Context, name string, startMs, endMs int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.data {
		if e.Name == name && e.TimestampMs >= startMs && e.TimestampMs < endMs {
			count++
		}
	}
	return count, nil
}

// RevenueBuckets sums the amount_cents property of payment_succeeded events
// within [start, end), grouped into bucketMs-wide buckets.
func (s *AnalyticsEventStore) RevenueBuckets(_ context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error) {
	if bucketMs <= 0 || endMs <= startMs {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := emptyBuckets(startMs, endMs, bucketMs)
	for _, e := range s.data {
		if e.Name != domain.EventPaymentSucceeded {
			continue
		}
		if e.TimestampMs < startMs || e.TimestampMs >= endMs {
			continue
		}
		idx := (e.TimestampMs - startMs) / bucketMs
		buckets[idx].Count++
		if raw, ok := e.Properties["amount_cents"]; ok {
			if cents, err := strconv.ParseInt(raw, 10, 64); err == nil {
				buckets[idx].Sum += float64(cents)
			}
		}
	}
	return buckets, nil
}

func copyEvent(e *domain.AnalyticsEvent) *domain.AnalyticsEvent {
	cp := *e
	if e.UserID != nil {
		v := *e.UserID
		cp.UserID = &v
	}
	if e.Properties != nil {
		cp.Properties = make(map[string]string, len(e.Properties))
		for k, v := range e.Properties {
			cp.Properties[k] = v
		}
	}
	return &cp
}

var _ storage.AnalyticsEventStore = (*AnalyticsEventStore)(nil)
