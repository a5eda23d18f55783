// Package metrics provides the metric source adapters and the pure
// computations behind aggregated dashboard snapshots.
package metrics

import (
	"context"
	"time"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// DefaultQueryTimeout bounds each windowed store query so one stuck
// query cannot stall an entire aggregation tick.
const DefaultQueryTimeout = 10 * time.Second

// QueryRecorder observes windowed store query outcomes. Satisfied by the
// observability metric set; nil disables recording.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, seconds float64, err error)
}

// Source answers time-windowed metric queries against the analytics
// stores. It knows nothing about caching or alerting.
type Source struct {
	sessions     storage.SessionStore
	pageViews    storage.PageViewStore
	events       storage.AnalyticsEventStore
	queries      QueryRecorder
	queryTimeout time.Duration
}

// SourceOptions contains configuration for creating a Source.
type SourceOptions struct {
	SessionStore        storage.SessionStore
	PageViewStore       storage.PageViewStore
	AnalyticsEventStore storage.AnalyticsEventStore
	Queries             QueryRecorder // optional query instrumentation
	QueryTimeout        time.Duration // Default: DefaultQueryTimeout
}

// NewSource creates a new metric source adapter.
func NewSource(opts SourceOptions) *Source {
	timeout := opts.QueryTimeout
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	return &Source{
		sessions:     opts.SessionStore,
		pageViews:    opts.PageViewStore,
		events:       opts.AnalyticsEventStore,
		queries:      opts.Queries,
		queryTimeout: timeout,
	}
}

func (s *Source) record(database, operation string, start time.Time, err error) {
	if s.queries == nil {
		return
	}
	s.queries.RecordDBQuery(database, operation, time.Since(start).Seconds(), err)
}

// ActiveUsers counts sessions active within [sinceMs, now].
func (s *Source) ActiveUsers(ctx context.Context, sinceMs int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	count, err := s.sessions.CountActiveSince(ctx, sinceMs)
	s.record("sessions", "count_active_since", start, err)
	return count, err
}

// PageViews counts page views within [start, end).
func (s *Source) PageViews(ctx context.Context, startMs, endMs int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	count, err := s.pageViews.CountInRange(ctx, startMs, endMs)
	s.record("page_views", "count_in_range", start, err)
	return count, err
}

// Events counts analytics events within [start, end).
func (s *Source) Events(ctx context.Context, startMs, endMs int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	count, err := s.events.CountInRange(ctx, startMs, endMs)
	s.record("analytics_events", "count_in_range", start, err)
	return count, err
}

// Conversions counts conversion events within [start, end).
func (s *Source) Conversions(ctx context.Context, startMs, endMs int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	count, err := s.events.CountByNameInRange(ctx, domain.EventConversion, startMs, endMs)
	s.record("analytics_events", "count_by_name_in_range", start, err)
	return count, err
}

// Sessions lists sessions started within [start, end), the raw input for
// bounce rate and average session duration.
func (s *Source) Sessions(ctx context.Context, startMs, endMs int64) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	sessions, err := s.sessions.ListInRange(ctx, startMs, endMs)
	s.record("sessions", "list_in_range", start, err)
	return sessions, err
}

// TopPages groups page views by page within [start, end), capped at limit.
func (s *Source) TopPages(ctx context.Context, startMs, endMs int64, limit int) ([]*domain.PageCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	pages, err := s.pageViews.TopPagesInRange(ctx, startMs, endMs, limit)
	s.record("page_views", "top_pages_in_range", start, err)
	return pages, err
}

// UserGrowthBuckets counts session starts per bucket within [start, end).
func (s *Source) UserGrowthBuckets(ctx context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	buckets, err := s.sessions.CountByBuckets(ctx, startMs, endMs, bucketMs)
	s.record("sessions", "count_by_buckets", start, err)
	return buckets, err
}

// RevenueBuckets sums successful payment amounts per bucket within [start, end).
func (s *Source) RevenueBuckets(ctx context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	start := time.Now()
	buckets, err := s.events.RevenueBuckets(ctx, startMs, endMs, bucketMs)
	s.record("analytics_events", "revenue_buckets", start, err)
	return buckets, err
}
