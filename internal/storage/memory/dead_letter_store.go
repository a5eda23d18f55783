package memory

import (
	"context"
	"sort"
	"sync"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// DeadLetterStore is an in-memory implementation of storage.DeadLetterStore.
type DeadLetterStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DeadLetter // keyed by id
}

// NewDeadLetterStore creates a new in-memory dead letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{
		data: make(map[string]*domain.DeadLetter),
	}
}

// Insert adds a new dead letter. Returns ErrDuplicateKey if id exists.
func (s *DeadLetterStore) Insert(_ context.Context, d *domain.DeadLetter) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *d
	cp.Payload = append([]byte(nil), d.Payload...)
	s.data[d.ID] = &cp
	return nil
}

// ListUnresolved retrieves unresolved dead letters, ordered by creation ASC.
func (s *DeadLetterStore) ListUnresolved(_ context.Context) ([]*domain.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeadLetter
	for _, d := range s.data {
		if !d.Resolved {
			cp := *d
			cp.Payload = append([]byte(nil), d.Payload...)
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// MarkResolved flags a dead letter as handled. Returns ErrNotFound if not exists.
func (s *DeadLetterStore) MarkResolved(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	d.Resolved = true
	return nil
}

var _ storage.DeadLetterStore = (*DeadLetterStore)(nil)
