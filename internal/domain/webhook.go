package domain

import "encoding/json"

// Webhook event types emitted by the payment provider.
const (
	WebhookSubscriptionCreated     = "customer.subscription.created"
	WebhookSubscriptionUpdated     = "customer.subscription.updated"
	WebhookSubscriptionDeleted     = "customer.subscription.deleted"
	WebhookInvoicePaymentSucceeded = "invoice.payment_succeeded"
	WebhookInvoicePaymentFailed    = "invoice.payment_failed"
	WebhookCustomerCreated         = "customer.created"
)

// WebhookEvent is one inbound payment-provider event envelope.
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData wraps the event's object payload.
type WebhookEventData struct {
	Object json.RawMessage `json:"object"`
}

// SubscriptionObject is the provider's subscription payload.
type SubscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"` // provider customer id
	Status             string `json:"status"`
	PriceID            string `json:"price_id"`
	CurrentPeriodStart int64  `json:"current_period_start"` // Unix seconds
	CurrentPeriodEnd   int64  `json:"current_period_end"`   // Unix seconds
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
}

// InvoiceObject is the provider's invoice payload.
type InvoiceObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	AmountPaid       int64  `json:"amount_paid"` // cents
	AmountDue        int64  `json:"amount_due"`  // cents
	Status           string `json:"status"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
	PeriodEnd        int64  `json:"period_end"` // Unix seconds
}

// CustomerObject is the provider's customer payload.
type CustomerObject struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
