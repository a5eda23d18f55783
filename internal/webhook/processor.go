// Package webhook processes inbound payment-provider events: it validates
// the envelope, deduplicates redeliveries, dispatches to a per-type
// handler, and dead-letters anything a handler cannot absorb. Nothing
// escapes Process except a malformed-payload rejection; the provider must
// never see a handler failure as a retryable error.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/email"
	"admin-pulse/internal/payments"
	"admin-pulse/internal/storage"
)

// ErrMalformedPayload is returned when the request body is not a valid
// event envelope. This is the only error Process returns; handlers map it
// to HTTP 400 so the provider stops retrying a payload that can never parse.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Observer counts processing outcomes. Methods are called synchronously
// from the request path and must not block.
type Observer interface {
	RecordWebhookProcessed(eventType, status string)
	RecordWebhookDuplicate()
	RecordDeadLetter()
	RecordEmailSent(template, status string)
}

type nopObserver struct{}

func (nopObserver) RecordWebhookProcessed(string, string) {}
func (nopObserver) RecordWebhookDuplicate()               {}
func (nopObserver) RecordDeadLetter()                     {}
func (nopObserver) RecordEmailSent(string, string)        {}

// Options configures the Processor.
type Options struct {
	Users       storage.UserStore
	Events      storage.AnalyticsEventStore
	DeadLetters storage.DeadLetterStore
	Idempotency IdempotencyStore
	Payments    payments.Client
	Emails      email.Sender
	Logger      *log.Logger

	// Observer receives processing counters. Optional.
	Observer Observer

	// Now overrides the clock, for tests.
	Now func() int64
}

// Processor handles inbound payment-provider webhook events.
type Processor struct {
	users       storage.UserStore
	events      storage.AnalyticsEventStore
	deadLetters storage.DeadLetterStore
	idempotency IdempotencyStore
	payments    payments.Client
	emails      email.Sender
	logger      *log.Logger
	obs         Observer
	now         func() int64
}

// NewProcessor creates a webhook processor.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Users == nil {
		return nil, errors.New("webhook: user store is required")
	}
	if opts.Events == nil {
		return nil, errors.New("webhook: analytics event store is required")
	}
	if opts.DeadLetters == nil {
		return nil, errors.New("webhook: dead letter store is required")
	}
	if opts.Idempotency == nil {
		return nil, errors.New("webhook: idempotency store is required")
	}
	if opts.Payments == nil {
		return nil, errors.New("webhook: payments client is required")
	}
	if opts.Emails == nil {
		return nil, errors.New("webhook: email sender is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().UnixMilli() }
	}

	return &Processor{
		users:       opts.Users,
		events:      opts.Events,
		deadLetters: opts.DeadLetters,
		idempotency: opts.Idempotency,
		payments:    opts.Payments,
		emails:      opts.Emails,
		logger:      opts.Logger,
		obs:         opts.Observer,
		now:         opts.Now,
	}, nil
}

// Process handles one raw webhook delivery. It returns ErrMalformedPayload
// for bodies that cannot be parsed into an event envelope; every other
// failure is absorbed here (logged and dead-lettered) so the delivery is
// acknowledged and the provider does not retry.
func (p *Processor) Process(ctx context.Context, payload []byte) error {
	var event domain.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	// Reject incomplete envelopes before the idempotency check: a rejected
	// delivery must not consume its event id, or a corrected redelivery
	// would be skipped as a duplicate.
	if event.ID == "" || event.Type == "" || missingObject(event.Data.Object) {
		return fmt.Errorf("%w: missing id, type, or data object", ErrMalformedPayload)
	}

	first, err := p.idempotency.MarkProcessed(ctx, event.ID)
	if err != nil {
		// Degrade to at-least-once: handlers write with deterministic ids,
		// so reprocessing is safe while the idempotency store is down.
		p.logger.Printf("webhook %s: idempotency check failed, processing anyway: %v", event.ID, err)
	} else if !first {
		p.logger.Printf("webhook %s: duplicate delivery of %s, skipping", event.ID, event.Type)
		p.obs.RecordWebhookDuplicate()
		return nil
	}

	p.dispatch(ctx, &event, payload)
	return nil
}

// dispatch routes the event to its handler and contains every failure mode,
// including handler panics.
func (p *Processor) dispatch(ctx context.Context, event *domain.WebhookEvent, payload []byte) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = p.handle(ctx, event)
	}()

	if err != nil {
		p.logger.Printf("webhook %s: handler for %s failed: %v", event.ID, event.Type, err)
		p.obs.RecordWebhookProcessed(event.Type, "error")
		p.deadLetter(ctx, event, payload, err)
		return
	}
	p.obs.RecordWebhookProcessed(event.Type, "ok")
	p.logger.Printf("webhook %s: processed %s", event.ID, event.Type)
}

func (p *Processor) handle(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Type {
	case domain.WebhookSubscriptionCreated:
		return p.handleSubscriptionCreated(ctx, event)
	case domain.WebhookSubscriptionUpdated:
		return p.handleSubscriptionUpdated(ctx, event)
	case domain.WebhookSubscriptionDeleted:
		return p.handleSubscriptionDeleted(ctx, event)
	case domain.WebhookInvoicePaymentSucceeded:
		return p.handleInvoicePaymentSucceeded(ctx, event)
	case domain.WebhookInvoicePaymentFailed:
		return p.handleInvoicePaymentFailed(ctx, event)
	case domain.WebhookCustomerCreated:
		return p.handleCustomerCreated(ctx, event)
	default:
		p.logger.Printf("webhook %s: ignoring unhandled type %s", event.ID, event.Type)
		return nil
	}
}

func (p *Processor) deadLetter(ctx context.Context, event *domain.WebhookEvent, payload []byte, cause error) {
	letter := &domain.DeadLetter{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		EventType: event.Type,
		Reason:    cause.Error(),
		Payload:   payload,
		CreatedAt: p.now(),
	}
	if err := p.deadLetters.Insert(ctx, letter); err != nil {
		p.logger.Printf("webhook %s: failed to dead-letter: %v", event.ID, err)
		return
	}
	p.obs.RecordDeadLetter()
}

// missingObject reports whether the envelope carries no event object.
func missingObject(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
