package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

const userColumns = `
	id, email, name, customer_id,
	subscription_id, plan, subscription_status,
	current_period_start_ms, current_period_end_ms, cancel_at_period_end,
	created_at
`

// Insert adds a new user. Returns ErrDuplicateKey if id or email exists.
func (s *UserStore) Insert(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, name, customer_id,
			subscription_id, plan, subscription_status,
			current_period_start_ms, current_period_end_ms, cancel_at_period_end,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var (
		subID, plan, status    *string
		periodStart, periodEnd *int64
		cancelAtEnd            *bool
	)
	if sub := u.Subscription; sub != nil {
		subID = &sub.SubscriptionID
		plan = &sub.Plan
		status = &sub.Status
		periodStart = &sub.CurrentPeriodStartMs
		periodEnd = &sub.CurrentPeriodEndMs
		cancelAtEnd = &sub.CancelAtPeriodEnd
	}

	_, err := s.pool.Exec(ctx, query,
		u.ID, u.Email, u.Name, u.CustomerID,
		subID, plan, status,
		periodStart, periodEnd, cancelAtEnd,
		u.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email. Returns ErrNotFound if not exists.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	row := s.pool.QueryRow(ctx, query, email)
	u, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByCustomerID retrieves a user by payment provider customer id.
// Returns ErrNotFound if not exists.
func (s *UserStore) GetByCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE customer_id = $1`

	row := s.pool.QueryRow(ctx, query, customerID)
	u, err := scanUser(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by customer id: %w", err)
	}
	return u, nil
}

// UpdateSubscription replaces the user's subscription state. The row is
// locked for the duration of the transaction so concurrent webhook
// deliveries for the same user serialize instead of losing updates.
func (s *UserStore) UpdateSubscription(ctx context.Context, userID string, sub *domain.Subscription) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock user row: %w", err)
	}

	query := `
		UPDATE users SET
			subscription_id = $2,
			plan = $3,
			subscription_status = $4,
			current_period_start_ms = $5,
			current_period_end_ms = $6,
			cancel_at_period_end = $7
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, query,
		userID,
		sub.SubscriptionID, sub.Plan, sub.Status,
		sub.CurrentPeriodStartMs, sub.CurrentPeriodEndMs, sub.CancelAtPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// scanUser scans a single row into a User.
func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u                      domain.User
		subID, plan, status    *string
		periodStart, periodEnd *int64
		cancelAtEnd            *bool
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.CustomerID,
		&subID, &plan, &status,
		&periodStart, &periodEnd, &cancelAtEnd,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if subID != nil {
		u.Subscription = &domain.Subscription{
			SubscriptionID: *subID,
		}
		if plan != nil {
			u.Subscription.Plan = *plan
		}
		if status != nil {
			u.Subscription.Status = *status
		}
		if periodStart != nil {
			u.Subscription.CurrentPeriodStartMs = *periodStart
		}
		if periodEnd != nil {
			u.Subscription.CurrentPeriodEndMs = *periodEnd
		}
		if cancelAtEnd != nil {
			u.Subscription.CancelAtPeriodEnd = *cancelAtEnd
		}
	}
	return &u, nil
}
