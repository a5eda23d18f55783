package realtime

import (
	"sync"

	"admin-pulse/internal/domain"
)

// DefaultHistorySize caps the in-memory metrics history.
const DefaultHistorySize = 100

// History is a capped FIFO of metric snapshots, oldest evicted first.
// Owned exclusively by the Aggregator; read-only to everything else.
type History struct {
	mu      sync.RWMutex
	entries []*domain.AggregatedMetrics // oldest first
	size    int
}

// NewHistory creates a history ring with the given capacity.
// Zero or negative capacity uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Append adds a snapshot, evicting the oldest entry when at capacity.
func (h *History) Append(snapshot *domain.AggregatedMetrics) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, snapshot)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

// Latest returns the most recent snapshot, or nil when empty.
func (h *History) Latest() *domain.AggregatedMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[len(h.entries)-1]
}

// Recent returns up to n most-recent snapshots, ordered oldest to newest.
func (h *History) Recent(n int) []*domain.AggregatedMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || len(h.entries) == 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	result := make([]*domain.AggregatedMetrics, n)
	copy(result, h.entries[len(h.entries)-n:])
	return result
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
