// Package payments defines the narrow payment-provider surface the
// webhook pipeline depends on.
package payments

import (
	"context"
	"errors"
)

// ErrCustomerNotFound is returned when the provider has no such customer.
var ErrCustomerNotFound = errors.New("customer not found")

// Customer is the provider's customer record, reduced to the fields the
// pipeline needs for local user resolution.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// Client is the payment provider API surface consumed by webhook handlers.
type Client interface {
	// GetCustomer retrieves a customer by provider id.
	// Returns ErrCustomerNotFound if the provider does not know the id.
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
}
