package clickhouse

import (
	"context"
	"fmt"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// AnalyticsEventStore implements storage.AnalyticsEventStore using ClickHouse.
type AnalyticsEventStore struct {
	conn *Conn
}

// NewAnalyticsEventStore creates a new AnalyticsEventStore.
func NewAnalyticsEventStore(conn *Conn) *AnalyticsEventStore {
	return &AnalyticsEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnalyticsEventStore = (*AnalyticsEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
// MergeTree does not enforce uniqueness, so the id is checked explicitly
// before insert; webhook tracking relies on this for idempotency.
func (s *AnalyticsEventStore) Insert(ctx context.Context, e *domain.AnalyticsEvent) error {
	exists, err := s.exists(ctx, e.EventID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	properties := e.Properties
	if properties == nil {
		properties = map[string]string{}
	}

	query := `
		INSERT INTO analytics_events (event_id, user_id, name, properties, timestamp_ms)
		VALUES (?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query, e.EventID, e.UserID, e.Name, properties, uint64(e.TimestampMs))
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// CountInRange counts events within [start, end).
func (s *AnalyticsEventStore) CountInRange(ctx context.Context, startMs, endMs int64) (int, error) {
	query := `
		SELECT count(*) FROM analytics_events
		WHERE timestamp_ms >= ? AND timestamp_ms < ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, uint64(startMs), uint64(endMs)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count analytics events: %w", err)
	}
	return int(count), nil
}

// CountByNameInRange counts events with the given name within [start, end).
func (s *AnalyticsEventStore) CountByNameInRange(ctx context.Context, name string, startMs, endMs int64) (int, error) {
	query := `
		SELECT count(*) FROM analytics_events
		WHERE name = ? AND timestamp_ms >= ? AND timestamp_ms < ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, name, uint64(startMs), uint64(endMs)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count analytics events by name: %w", err)
	}
	return int(count), nil
}

// RevenueBuckets sums the amount_cents property of payment_succeeded
// events within [start, end), grouped into bucketMs-wide buckets.
// Empty buckets are included with a zero sum.
func (s *AnalyticsEventStore) RevenueBuckets(ctx context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error) {
	if bucketMs <= 0 || endMs <= startMs {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT
			intDiv(timestamp_ms - ?, ?) AS bucket,
			count(*) AS events,
			sum(toInt64OrZero(properties['amount_cents'])) AS cents
		FROM analytics_events
		WHERE name = ? AND timestamp_ms >= ? AND timestamp_ms < ?
		GROUP BY bucket
	`

	rows, err := s.conn.Query(ctx, query,
		uint64(startMs), uint64(bucketMs),
		domain.EventPaymentSucceeded, uint64(startMs), uint64(endMs),
	)
	if err != nil {
		return nil, fmt.Errorf("query revenue buckets: %w", err)
	}
	defer rows.Close()

	type bucketRow struct {
		count int
		sum   float64
	}
	found := make(map[int64]bucketRow)
	for rows.Next() {
		var bucket uint64
		var events uint64
		var cents int64
		if err := rows.Scan(&bucket, &events, &cents); err != nil {
			return nil, fmt.Errorf("scan revenue bucket: %w", err)
		}
		found[int64(bucket)] = bucketRow{count: int(events), sum: float64(cents)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue buckets: %w", err)
	}

	numBuckets := (endMs - startMs + bucketMs - 1) / bucketMs
	buckets := make([]*domain.BucketCount, 0, numBuckets)
	for i := int64(0); i < numBuckets; i++ {
		row := found[i]
		buckets = append(buckets, &domain.BucketCount{
			BucketStartMs: startMs + i*bucketMs,
			Count:         row.count,
			Sum:           row.sum,
		})
	}
	return buckets, nil
}

// exists checks if an event with the given id exists.
func (s *AnalyticsEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM analytics_events WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
