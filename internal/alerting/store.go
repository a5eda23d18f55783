package alerting

import (
	"sort"
	"sync"

	"admin-pulse/internal/domain"
)

// DefaultArchiveSize caps how many acknowledged alerts are retained.
const DefaultArchiveSize = 1000

// Store holds generated alerts keyed by id. Active alerts stay in the
// live map; acknowledged alerts move to a bounded archive so memory
// cannot grow without bound.
type Store struct {
	mu          sync.RWMutex
	active      map[string]*domain.RealtimeAlert
	archive     []*domain.RealtimeAlert // oldest first
	archiveSize int
}

// NewStore creates an alert store with the given archive capacity.
// Zero or negative capacity uses DefaultArchiveSize.
func NewStore(archiveSize int) *Store {
	if archiveSize <= 0 {
		archiveSize = DefaultArchiveSize
	}
	return &Store{
		active:      make(map[string]*domain.RealtimeAlert),
		archiveSize: archiveSize,
	}
}

// Add registers a newly generated alert.
func (s *Store) Add(alert *domain.RealtimeAlert) {
	if alert == nil || alert.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyAlert(alert)
	s.active[alert.ID] = cp
}

// ActiveAlerts returns all unacknowledged alerts, newest first.
func (s *Store) ActiveAlerts() []*domain.RealtimeAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RealtimeAlert, 0, len(s.active))
	for _, a := range s.active {
		result = append(result, copyAlert(a))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs > result[j].TimestampMs
		}
		return result[i].ID > result[j].ID
	})

	return result
}

// Acknowledge flips an alert to acknowledged and archives it.
// Returns the alert and whether this call changed its state; unknown ids
// return (nil, false). Acknowledgement is irreversible and idempotent:
// acknowledging an already-archived alert returns it without change.
func (s *Store) Acknowledge(id string) (*domain.RealtimeAlert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.active[id]; ok {
		a.Acknowledged = true
		delete(s.active, id)
		s.archive = append(s.archive, a)
		if len(s.archive) > s.archiveSize {
			s.archive = s.archive[len(s.archive)-s.archiveSize:]
		}
		return copyAlert(a), true
	}

	for _, a := range s.archive {
		if a.ID == id {
			return copyAlert(a), false
		}
	}
	return nil, false
}

func copyAlert(a *domain.RealtimeAlert) *domain.RealtimeAlert {
	cp := *a
	if a.Metadata != nil {
		md := *a.Metadata
		cp.Metadata = &md
	}
	return &cp
}
