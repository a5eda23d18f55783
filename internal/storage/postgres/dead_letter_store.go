package postgres

import (
	"context"
	"fmt"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// DeadLetterStore implements storage.DeadLetterStore using PostgreSQL.
type DeadLetterStore struct {
	pool *Pool
}

// NewDeadLetterStore creates a new DeadLetterStore.
func NewDeadLetterStore(pool *Pool) *DeadLetterStore {
	return &DeadLetterStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeadLetterStore = (*DeadLetterStore)(nil)

// Insert adds a new dead letter. Returns ErrDuplicateKey if id exists.
func (s *DeadLetterStore) Insert(ctx context.Context, d *domain.DeadLetter) error {
	query := `
		INSERT INTO webhook_dead_letters (
			id, event_id, event_type, reason, payload, resolved, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		d.ID,
		d.EventID,
		d.EventType,
		d.Reason,
		d.Payload,
		d.Resolved,
		d.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// ListUnresolved retrieves unresolved dead letters, ordered by creation ASC.
func (s *DeadLetterStore) ListUnresolved(ctx context.Context) ([]*domain.DeadLetter, error) {
	query := `
		SELECT id, event_id, event_type, reason, payload, resolved, created_at
		FROM webhook_dead_letters
		WHERE NOT resolved
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unresolved dead letters: %w", err)
	}
	defer rows.Close()

	var letters []*domain.DeadLetter
	for rows.Next() {
		var d domain.DeadLetter
		err := rows.Scan(
			&d.ID,
			&d.EventID,
			&d.EventType,
			&d.Reason,
			&d.Payload,
			&d.Resolved,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		letters = append(letters, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}
	return letters, nil
}

// MarkResolved flags a dead letter as handled. Returns ErrNotFound if not exists.
func (s *DeadLetterStore) MarkResolved(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE webhook_dead_letters SET resolved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark dead letter resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
