package domain

// Session represents one visitor session.
// Corresponds to sessions table in PostgreSQL.
type Session struct {
	SessionID       string   // PRIMARY KEY
	UserID          *string  // nullable, anonymous sessions have none
	StartedAt       int64    // Unix timestamp in milliseconds
	LastSeenAt      int64    // Unix timestamp in milliseconds
	PageViews       int      // page views attributed to this session
	DurationSeconds *float64 // nullable, only set once the session ended
}

// PageView represents one page-view row.
// Corresponds to page_views table in ClickHouse.
type PageView struct {
	ID          string // PRIMARY KEY, uuid
	SessionID   string
	UserID      *string // nullable
	Page        string  // path, e.g. "/dashboard/billing"
	TimestampMs int64   // Unix timestamp in milliseconds
}

// Analytics event names recorded by the webhook pipeline.
const (
	EventSubscriptionCreated  = "subscription_created"
	EventPlanChanged          = "plan_changed"
	EventSubscriptionCanceled = "subscription_canceled"
	EventPaymentSucceeded     = "payment_succeeded"
	EventPaymentFailed        = "payment_failed"
	EventConversion           = "conversion"
)

// AnalyticsEvent is one append-only tracking row. The aggregator's adapters
// read these back as raw input for event and conversion counts.
// Corresponds to analytics_events table in ClickHouse.
type AnalyticsEvent struct {
	EventID     string            // PRIMARY KEY, deterministic hash for idempotent inserts
	UserID      *string           // nullable
	Name        string            // e.g. "conversion", "subscription_created"
	Properties  map[string]string // free-form event properties
	TimestampMs int64             // Unix timestamp in milliseconds
}

// PageCount is a grouped page-view count for one page.
type PageCount struct {
	Page  string
	Count int
}

// BucketCount is a count of rows falling into one time bucket.
type BucketCount struct {
	BucketStartMs int64
	Count         int
	Sum           float64 // sum of the bucketed value, when applicable (e.g. revenue)
}
