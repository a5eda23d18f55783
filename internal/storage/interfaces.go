package storage

import (
	"context"

	"admin-pulse/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// Insert adds a new user. Returns ErrDuplicateKey if id or email exists.
	Insert(ctx context.Context, u *domain.User) error

	// GetByEmail retrieves a user by email. Returns ErrNotFound if not exists.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByCustomerID retrieves a user by payment provider customer id.
	// Returns ErrNotFound if not exists.
	GetByCustomerID(ctx context.Context, customerID string) (*domain.User, error)

	// UpdateSubscription replaces the user's subscription state.
	// The read-then-update is transactional so concurrent webhook delivery
	// cannot produce lost updates. Returns ErrNotFound for unknown users.
	UpdateSubscription(ctx context.Context, userID string, sub *domain.Subscription) error
}

// SessionStore provides access to sessions storage.
type SessionStore interface {
	// Insert adds a new session. Returns ErrDuplicateKey if session_id exists.
	Insert(ctx context.Context, s *domain.Session) error

	// CountActiveSince counts sessions whose last activity is at or after sinceMs.
	CountActiveSince(ctx context.Context, sinceMs int64) (int, error)

	// ListInRange retrieves sessions started within [start, end), ordered by start ASC.
	ListInRange(ctx context.Context, startMs, endMs int64) ([]*domain.Session, error)

	// CountByBuckets counts sessions started within [start, end) grouped into
	// bucketMs-wide buckets. Empty buckets are included with a zero count.
	CountByBuckets(ctx context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error)
}

// PageViewStore provides access to page_views storage.
type PageViewStore interface {
	// Insert adds a new page view. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, v *domain.PageView) error

	// InsertBulk adds multiple page views. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, views []*domain.PageView) error

	// CountInRange counts page views within [start, end).
	CountInRange(ctx context.Context, startMs, endMs int64) (int, error)

	// TopPagesInRange groups page views by page within [start, end),
	// ordered by count DESC, capped at limit.
	TopPagesInRange(ctx context.Context, startMs, endMs int64, limit int) ([]*domain.PageCount, error)
}

// AnalyticsEventStore provides access to analytics_events storage.
// Events are append-only; the aggregator reads them back as raw input.
type AnalyticsEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists,
	// which callers rely on for idempotent webhook tracking.
	Insert(ctx context.Context, e *domain.AnalyticsEvent) error

	// CountInRange counts events within [start, end).
	CountInRange(ctx context.Context, startMs, endMs int64) (int, error)

	// CountByNameInRange counts events with the given name within [start, end).
	CountByNameInRange(ctx context.Context, name string, startMs, endMs int64) (int, error)

	// RevenueBuckets sums the amount_cents property of payment_succeeded
	// events within [start, end), grouped into bucketMs-wide buckets.
	// Empty buckets are included with a zero sum.
	RevenueBuckets(ctx context.Context, startMs, endMs, bucketMs int64) ([]*domain.BucketCount, error)
}

// DeadLetterStore provides access to webhook_dead_letters storage.
type DeadLetterStore interface {
	// Insert adds a new dead letter. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, d *domain.DeadLetter) error

	// ListUnresolved retrieves unresolved dead letters, ordered by creation ASC.
	ListUnresolved(ctx context.Context) ([]*domain.DeadLetter, error)

	// MarkResolved flags a dead letter as handled. Returns ErrNotFound if not exists.
	MarkResolved(ctx context.Context, id string) error
}
