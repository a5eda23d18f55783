// Package email defines the transactional email surface consumed by the
// webhook pipeline. Template rendering lives with the provider; this
// package only carries template kind, recipient, and structured data.
package email

import "context"

// TemplateKind selects a transactional email template.
type TemplateKind string

const (
	TemplateWelcome             TemplateKind = "welcome"
	TemplatePlanChange          TemplateKind = "plan_change"
	TemplatePaymentConfirmation TemplateKind = "payment_confirmation"
)

// Message is one transactional email send request.
type Message struct {
	Kind TemplateKind
	To   string
	Data map[string]string // template variables
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
