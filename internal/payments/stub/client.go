// Package stub provides an in-memory payments.Client for tests and
// local development.
package stub

import (
	"context"
	"sync"

	"admin-pulse/internal/payments"
)

// Client is an in-memory payments.Client backed by a fixed customer set.
type Client struct {
	mu        sync.RWMutex
	customers map[string]*payments.Customer
}

// NewClient creates a stub client.
func NewClient() *Client {
	return &Client{customers: make(map[string]*payments.Customer)}
}

// AddCustomer registers a customer the stub will serve.
func (c *Client) AddCustomer(customer *payments.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *customer
	c.customers[customer.ID] = &cp
}

// GetCustomer retrieves a customer by provider id.
func (c *Client) GetCustomer(_ context.Context, customerID string) (*payments.Customer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	customer, ok := c.customers[customerID]
	if !ok {
		return nil, payments.ErrCustomerNotFound
	}
	cp := *customer
	return &cp, nil
}

var _ payments.Client = (*Client)(nil)
