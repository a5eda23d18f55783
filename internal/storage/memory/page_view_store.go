package memory

import (
	"context"
	"sort"
	"sync"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// PageViewStore is an in-memory implementation of storage.PageViewStore.
type PageViewStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PageView // keyed by id
}

// NewPageViewStore creates a new in-memory page view store.
func NewPageViewStore() *PageViewStore {
	return &PageViewStore{
		data: make(map[string]*domain.PageView),
	}
}

// Insert adds a new page view. Returns ErrDuplicateKey if id exists.
func (s *PageViewStore) Insert(_ context.Context, v *domain.PageView) error {
	if v == nil || v.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *v
	s.data[v.ID] = &cp
	return nil
}

// InsertBulk adds multiple page views. Fails entire batch on any duplicate.
func (s *PageViewStore) InsertBulk(_ context.Context, views []*domain.PageView) error {
	if len(views) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(views))
	for _, v := range views {
		if v == nil || v.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[v.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[v.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[v.ID] = struct{}{}
	}

	for _, v := range views {
		cp := *v
		s.data[v.ID] = &cp
	}
	return nil
}

// CountInRange counts page views within [start, end).
func (s *PageViewStore) CountInRange(_ context.Context, startMs, endMs int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, v := range s.data {
		if v.TimestampMs >= startMs && v.TimestampMs < endMs {
			count++
		}
	}
	return count, nil
}

// TopPagesInRange groups page views by page within [start, end),
// ordered by count DESC, capped at limit.
func (s *PageViewStore) TopPagesInRange(_ context.Context, startMs, endMs int64, limit int) ([]*domain.PageCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, v := range s.data {
		if v.TimestampMs >= startMs && v.TimestampMs < endMs {
			counts[v.Page]++
		}
	}

	result := make([]*domain.PageCount, 0, len(counts))
	for page, count := range counts {
		result = append(result, &domain.PageCount{Page: page, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Page < result[j].Page
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.PageViewStore = (*PageViewStore)(nil)
