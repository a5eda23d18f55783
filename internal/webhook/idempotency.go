package webhook

import (
	"context"
	"sync"
)

// IdempotencyStore remembers which provider event ids have been processed.
// The provider retries deliveries until acknowledged, so the same event
// can arrive more than once.
type IdempotencyStore interface {
	// MarkProcessed records the event id and reports whether this call was
	// the first to do so. Returns (false, nil) for an already-seen id.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// MemoryIdempotencyStore is an in-process IdempotencyStore for tests and
// single-instance deployments.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryIdempotencyStore creates an empty in-process store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{seen: make(map[string]struct{})}
}

// MarkProcessed records the event id in memory.
func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = struct{}{}
	return true, nil
}

var _ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
