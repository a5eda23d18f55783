package memory

import (
	"context"
	"sync"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string // email -> id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

// Insert adds a new user. Returns ErrDuplicateKey if id or email exists.
func (s *UserStore) Insert(_ context.Context, u *domain.User) error {
	if u == nil || u.ID == "" || u.Email == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[u.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byEmail[u.Email]; exists {
		return storage.ErrDuplicateKey
	}

	s.byID[u.ID] = copyUser(u)
	s.byEmail[u.Email] = u.ID
	return nil
}

// GetByEmail retrieves a user by email. Returns ErrNotFound if not exists.
func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(s.byID[id]), nil
}

// GetByCustomerID retrieves a user by payment provider customer id.
func (s *UserStore) GetByCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.CustomerID == customerID {
			return copyUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

// UpdateSubscription replaces the user's subscription state.
func (s *UserStore) UpdateSubscription(_ context.Context, userID string, sub *domain.Subscription) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return storage.ErrNotFound
	}

	if sub == nil {
		u.Subscription = nil
		return nil
	}
	subCopy := *sub
	u.Subscription = &subCopy
	return nil
}

// copyUser returns a deep copy so callers cannot mutate stored state.
func copyUser(u *domain.User) *domain.User {
	cp := *u
	if u.Subscription != nil {
		sub := *u.Subscription
		cp.Subscription = &sub
	}
	return &cp
}

var _ storage.UserStore = (*UserStore)(nil)
