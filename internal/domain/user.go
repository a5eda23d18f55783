package domain

// Subscription is the billing state tied 1:1 to a user.
type Subscription struct {
	SubscriptionID       string // provider subscription id
	Plan                 string // resolved plan name, "Unknown" when unmapped
	Status               string // provider status: active, past_due, canceled, ...
	CurrentPeriodStartMs int64  // Unix timestamp in milliseconds
	CurrentPeriodEndMs   int64  // Unix timestamp in milliseconds
	CancelAtPeriodEnd    bool
}

// User is one local account record.
// Corresponds to users table in PostgreSQL.
type User struct {
	ID           string // PRIMARY KEY, uuid
	Email        string // UNIQUE, webhook customer resolution key
	Name         string
	CustomerID   string        // payment provider customer id
	Subscription *Subscription // nullable, absent before first checkout
	CreatedAt    int64         // Unix timestamp in milliseconds
}

// DeadLetter records a webhook event whose handler failed, retained for
// manual inspection and replay.
// Corresponds to webhook_dead_letters table in PostgreSQL.
type DeadLetter struct {
	ID        string // PRIMARY KEY, uuid
	EventID   string // provider event id
	EventType string
	Reason    string // handler error message
	Payload   []byte // raw event payload
	Resolved  bool
	CreatedAt int64 // Unix timestamp in milliseconds
}
