package postgres

import (
	"context"
	"fmt"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// SessionStore implements storage.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Insert adds a new session. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO sessions (
			session_id, user_id, started_at, last_seen_at, page_views, duration_seconds
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		sess.SessionID,
		sess.UserID,
		sess.StartedAt,
		sess.LastSeenAt,
		sess.PageViews,
		sess.DurationSeconds,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// CountActiveSince counts sessions whose last activity is at or after sinceMs.
func (s *SessionStore) CountActiveSince(ctx context.Context, sinceMs int64) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE last_seen_at >= $1`

	var count int
	if err := s.pool.QueryRow(ctx, query, sinceMs).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

// ListInRange retrieves sessions started within [start, end), ordered by start ASC.
func (s *SessionStore) ListInRange(ctx context.Context, startMs, endMs int64) ([]*domain.Session, error) {
	query := `
		SELECT session_id, user_id, started_at, last_seen_at, page_views, duration_seconds
		FROM sessions
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("list sessions in range: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var sess domain.Session
		err := rows.Scan(
			&sess.SessionID,
			&sess.UserID,
			&sess.StartedAt,
			&sess.LastSeenAt,
			&sess.PageViews,
			&sess.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// CountByBuckets counts sessions started within [start, end) grouped into
// bucketMs-wide buckets. Empty buckets are included with a zero count.
func (s *SessionStore) CountByBuckets(ctx context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error) {
	if bucketMs <= 0 || endMs <= startMs {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT (started_at - $1) / $3 AS bucket, COUNT(*)
		FROM sessions
		WHERE started_at >= $1 AND started_at < $2
		GROUP BY bucket
	`

	rows, err := s.pool.Query(ctx, query, startMs, endMs, bucketMs)
	if err != nil {
		return nil, fmt.Errorf("count sessions by buckets: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var bucket int64
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan bucket count: %w", err)
		}
		counts[bucket] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket counts: %w", err)
	}

	numBuckets := (endMs - startMs + bucketMs - 1) / bucketMs
	buckets := make([]*domain.BucketCount, 0, numBuckets)
	for i := int64(0); i < numBuckets; i++ {
		buckets = append(buckets, &domain.BucketCount{
			BucketStartMs: startMs + i*bucketMs,
			Count:         counts[i],
		})
	}
	return buckets, nil
}
