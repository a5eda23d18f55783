package memory

import (
	"context"
	"sort"
	"sync"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session // keyed by session_id
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Insert adds a new session. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.SessionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sess.SessionID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := copySession(sess)
	s.data[sess.SessionID] = cp
	return nil
}

// CountActiveSince counts sessions whose last activity is at or after sinceMs.
func (s *SessionStore) CountActiveSince(_ context.Context, sinceMs int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sess := range s.data {
		if sess.LastSeenAt >= sinceMs {
			count++
		}
	}
	return count, nil
}

// ListInRange retrieves sessions started within [start, end), ordered by start ASC.
func (s *SessionStore) ListInRange(_ context.Context, startMs, endMs int64) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Session
	for _, sess := range s.data {
		if sess.StartedAt >= startMs && sess.StartedAt < endMs {
			result = append(result, copySession(sess))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].SessionID < result[j].SessionID
	})

	return result, nil
}

// CountByBuckets counts sessions started within [start, end) grouped into
// bucketMs-wide buckets. Empty buckets are included with a zero count.
func (s *SessionStore) CountByBuckets(_ context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error) {
	if bucketMs <= 0 || endMs <= startMs {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := emptyBuckets(startMs, endMs, bucketMs)
	for _, sess := range s.data {
		if sess.StartedAt >= startMs && sess.StartedAt < endMs {
			idx := (sess.StartedAt - startMs) / bucketMs
			buckets[idx].Count++
		}
	}
	return buckets, nil
}

// emptyBuckets builds the full bucket range so gaps are explicit zeros.
func emptyBuckets(startMs, endMs, bucketMs int64) []*domain.BucketCount {
	n := (endMs - startMs + bucketMs - 1) / bucketMs
	buckets := make([]*domain.BucketCount, n)
	for i := int64(0); i < n; i++ {
		buckets[i] = &domain.BucketCount{BucketStartMs: startMs + i*bucketMs}
	}
	return buckets
}

func copySession(sess *domain.Session) *domain.Session {
	cp := *sess
	if sess.UserID != nil {
		v := *sess.UserID
		cp.UserID = &v
	}
	if sess.DurationSeconds != nil {
		v := *sess.DurationSeconds
		cp.DurationSeconds = &v
	}
	return &cp
}

var _ storage.SessionStore = (*SessionStore)(nil)
