package clickhouse

import (
	"context"
	"fmt"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// PageViewStore implements storage.PageViewStore using ClickHouse.
type PageViewStore struct {
	conn *Conn
}

// NewPageViewStore creates a new PageViewStore.
func NewPageViewStore(conn *Conn) *PageViewStore {
	return &PageViewStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PageViewStore = (*PageViewStore)(nil)

// Insert adds a new page view. Returns ErrDuplicateKey if id exists.
func (s *PageViewStore) Insert(ctx context.Context, v *domain.PageView) error {
	return s.InsertBulk(ctx, []*domain.PageView{v})
}

// InsertBulk adds multiple page views. Fails entire batch on any duplicate.
// MergeTree does not enforce uniqueness, so duplicates are checked
// explicitly before the batch is sent.
func (s *PageViewStore) InsertBulk(ctx context.Context, views []*domain.PageView) error {
	if len(views) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(views))
	for _, v := range views {
		if _, exists := seen[v.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[v.ID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, v := range views {
		exists, err := s.exists(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO page_views (id, session_id, user_id, page, timestamp_ms)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range views {
		if err := batch.Append(v.ID, v.SessionID, v.UserID, v.Page, uint64(v.TimestampMs)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountInRange counts page views within [start, end).
func (s *PageViewStore) CountInRange(ctx context.Context, startMs, endMs int64) (int, error) {
	query := `
		SELECT count(*) FROM page_views
		WHERE timestamp_ms >= ? AND timestamp_ms < ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, uint64(startMs), uint64(endMs)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count page views: %w", err)
	}
	return int(count), nil
}

// TopPagesInRange groups page views by page within [start, end),
// ordered by count DESC, capped at limit.
func (s *PageViewStore) TopPagesInRange(ctx context.Context, startMs, endMs int64, limit int) ([]*domain.PageCount, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT page, count(*) AS views
		FROM page_views
		WHERE timestamp_ms >= ? AND timestamp_ms < ?
		GROUP BY page
		ORDER BY views DESC, page ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(startMs), uint64(endMs), limit)
	if err != nil {
		return nil, fmt.Errorf("query top pages: %w", err)
	}
	defer rows.Close()

	var pages []*domain.PageCount
	for rows.Next() {
		var page string
		var views uint64
		if err := rows.Scan(&page, &views); err != nil {
			return nil, fmt.Errorf("scan top page: %w", err)
		}
		pages = append(pages, &domain.PageCount{Page: page, Count: int(views)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top pages: %w", err)
	}
	return pages, nil
}

// exists checks if a page view with the given id exists.
func (s *PageViewStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM page_views WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
