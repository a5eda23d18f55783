package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/email"
	"admin-pulse/internal/idhash"
	"admin-pulse/internal/payments"
	"admin-pulse/internal/storage"
)

// resolveUser maps a provider customer id to a local user. Users carrying
// the customer id resolve locally; the rest go through the provider's
// customer email. A customer or user that does not exist locally is
// benign: events can arrive for accounts created out of band or already
// deleted, and the handler treats them as a no-op.
// Returns (nil, nil) for those misses.
func (p *Processor) resolveUser(ctx context.Context, eventID, customerID string) (*domain.User, error) {
	user, err := p.users.GetByCustomerID(ctx, customerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get user by customer id: %w", err)
	}

	// Accounts created before the customer id was recorded locally still
	// resolve through the provider's customer email.
	customer, err := p.payments.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, payments.ErrCustomerNotFound) {
			p.logger.Printf("webhook %s: provider has no customer %s, skipping", eventID, customerID)
			return nil, nil
		}
		return nil, fmt.Errorf("get customer %s: %w", customerID, err)
	}

	user, err = p.users.GetByEmail(ctx, customer.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			p.logger.Printf("webhook %s: no local user for %s, skipping", eventID, customer.Email)
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (p *Processor) handleSubscriptionCreated(ctx context.Context, event *domain.WebhookEvent) error {
	var obj domain.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode subscription object: %w", err)
	}

	user, err := p.resolveUser(ctx, event.ID, obj.Customer)
	if err != nil || user == nil {
		return err
	}

	sub := subscriptionFromObject(&obj)
	if err := p.users.UpdateSubscription(ctx, user.ID, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	p.sendEmail(ctx, event.ID, email.Message{
		Kind: email.TemplateWelcome,
		To:   user.Email,
		Data: map[string]string{"name": user.Name, "plan": sub.Plan},
	})
	p.track(ctx, event.ID, user, domain.EventSubscriptionCreated, map[string]string{
		"plan":            sub.Plan,
		"subscription_id": sub.SubscriptionID,
	})
	return nil
}

func (p *Processor) handleSubscriptionUpdated(ctx context.Context, event *domain.WebhookEvent) error {
	var obj domain.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode subscription object: %w", err)
	}

	user, err := p.resolveUser(ctx, event.ID, obj.Customer)
	if err != nil || user == nil {
		return err
	}

	oldPlan := ""
	if user.Subscription != nil {
		oldPlan = user.Subscription.Plan
	}

	sub := subscriptionFromObject(&obj)
	if err := p.users.UpdateSubscription(ctx, user.ID, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	// Updates fire for renewals and status flips too; only an actual plan
	// change warrants an email.
	if sub.Plan == oldPlan {
		return nil
	}

	p.sendEmail(ctx, event.ID, email.Message{
		Kind: email.TemplatePlanChange,
		To:   user.Email,
		Data: map[string]string{"name": user.Name, "old_plan": oldPlan, "new_plan": sub.Plan},
	})
	p.track(ctx, event.ID, user, domain.EventPlanChanged, map[string]string{
		"old_plan": oldPlan,
		"new_plan": sub.Plan,
	})
	return nil
}

func (p *Processor) handleSubscriptionDeleted(ctx context.Context, event *domain.WebhookEvent) error {
	var obj domain.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode subscription object: %w", err)
	}

	user, err := p.resolveUser(ctx, event.ID, obj.Customer)
	if err != nil || user == nil {
		return err
	}

	sub := subscriptionFromObject(&obj)
	sub.Status = "canceled"
	if err := p.users.UpdateSubscription(ctx, user.ID, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	p.track(ctx, event.ID, user, domain.EventSubscriptionCanceled, map[string]string{
		"plan":            sub.Plan,
		"subscription_id": sub.SubscriptionID,
	})
	return nil
}

func (p *Processor) handleInvoicePaymentSucceeded(ctx context.Context, event *domain.WebhookEvent) error {
	var obj domain.InvoiceObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode invoice object: %w", err)
	}

	user, err := p.resolveUser(ctx, event.ID, obj.Customer)
	if err != nil || user == nil {
		return err
	}

	p.sendEmail(ctx, event.ID, email.Message{
		Kind: email.TemplatePaymentConfirmation,
		To:   user.Email,
		Data: map[string]string{
			"name":        user.Name,
			"amount":      formatCents(obj.AmountPaid),
			"invoice_url": obj.HostedInvoiceURL,
		},
	})
	p.track(ctx, event.ID, user, domain.EventPaymentSucceeded, map[string]string{
		"invoice_id":   obj.ID,
		"amount_cents": strconv.FormatInt(obj.AmountPaid, 10),
	})
	return nil
}

func (p *Processor) handleInvoicePaymentFailed(ctx context.Context, event *domain.WebhookEvent) error {
	var obj domain.InvoiceObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode invoice object: %w", err)
	}

	user, err := p.resolveUser(ctx, event.ID, obj.Customer)
	if err != nil || user == nil {
		return err
	}

	p.track(ctx, event.ID, user, domain.EventPaymentFailed, map[string]string{
		"invoice_id":   obj.ID,
		"amount_cents": strconv.FormatInt(obj.AmountDue, 10),
	})
	return nil
}

// handleCustomerCreated provisions a local user for a provider customer
// created through checkout before any local signup.
func (p *Processor) handleCustomerCreated(ctx context.Context, event *domain.WebhookEvent) error {
	var obj domain.CustomerObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return fmt.Errorf("decode customer object: %w", err)
	}
	if obj.Email == "" {
		p.logger.Printf("webhook %s: customer %s has no email, skipping", event.ID, obj.ID)
		return nil
	}

	_, err := p.users.GetByEmail(ctx, obj.Email)
	if err == nil {
		p.logger.Printf("webhook %s: user %s already exists, skipping", event.ID, obj.Email)
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get user by email: %w", err)
	}

	user := &domain.User{
		ID:         uuid.NewString(),
		Email:      obj.Email,
		Name:       obj.Name,
		CustomerID: obj.ID,
		CreatedAt:  p.now(),
	}
	if err := p.users.Insert(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// sendEmail delivers best-effort: the subscription state is already
// written, and a dropped email must not fail the event.
func (p *Processor) sendEmail(ctx context.Context, eventID string, msg email.Message) {
	if err := p.emails.Send(ctx, msg); err != nil {
		p.logger.Printf("webhook %s: failed to send %s email to %s: %v", eventID, msg.Kind, msg.To, err)
		p.obs.RecordEmailSent(string(msg.Kind), "error")
		return
	}
	p.obs.RecordEmailSent(string(msg.Kind), "ok")
}

// track records an analytics event best-effort. The event id is derived
// from the provider event id so a redelivered webhook cannot double-count.
func (p *Processor) track(ctx context.Context, eventID string, user *domain.User, name string, props map[string]string) {
	ev := &domain.AnalyticsEvent{
		EventID:     idhash.ComputeAnalyticsEventID(eventID, name),
		UserID:      &user.ID,
		Name:        name,
		Properties:  props,
		TimestampMs: p.now(),
	}
	if err := p.events.Insert(ctx, ev); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		p.logger.Printf("webhook %s: failed to track %s: %v", eventID, name, err)
	}
}

func subscriptionFromObject(obj *domain.SubscriptionObject) *domain.Subscription {
	return &domain.Subscription{
		SubscriptionID:       obj.ID,
		Plan:                 PlanForPrice(obj.PriceID),
		Status:               obj.Status,
		CurrentPeriodStartMs: obj.CurrentPeriodStart * 1000,
		CurrentPeriodEndMs:   obj.CurrentPeriodEnd * 1000,
		CancelAtPeriodEnd:    obj.CancelAtPeriodEnd,
	}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
