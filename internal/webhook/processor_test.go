package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/email"
	"admin-pulse/internal/payments"
	"admin-pulse/internal/payments/stub"
	"admin-pulse/internal/storage/memory"
)

// countingObserver records processing counters for assertions.
type countingObserver struct {
	processed   map[string]int
	emails      map[string]int
	duplicates  int
	deadLetters int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		processed: make(map[string]int),
		emails:    make(map[string]int),
	}
}

func (o *countingObserver) RecordWebhookProcessed(eventType, status string) {
	o.processed[eventType+"/"+status]++
}
func (o *countingObserver) RecordWebhookDuplicate() { o.duplicates++ }
func (o *countingObserver) RecordDeadLetter()       { o.deadLetters++ }
func (o *countingObserver) RecordEmailSent(template, status string) {
	o.emails[template+"/"+status]++
}

type processorEnv struct {
	processor *Processor
	users     *memory.UserStore
	events    *memory.AnalyticsEventStore
	letters   *memory.DeadLetterStore
	emails    *email.Recorder
	payments  *stub.Client
	obs       *countingObserver
}

func newProcessorEnv(t *testing.T) *processorEnv {
	t.Helper()

	env := &processorEnv{
		users:    memory.NewUserStore(),
		events:   memory.NewAnalyticsEventStore(),
		letters:  memory.NewDeadLetterStore(),
		emails:   email.NewRecorder(),
		payments: stub.NewClient(),
		obs:      newCountingObserver(),
	}

	p, err := NewProcessor(Options{
		Users:       env.users,
		Events:      env.events,
		DeadLetters: env.letters,
		Idempotency: NewMemoryIdempotencyStore(),
		Payments:    env.payments,
		Emails:      env.emails,
		Logger:      log.New(io.Discard, "", 0),
		Observer:    env.obs,
		Now:         func() int64 { return 1_700_000_000_000 },
	})
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	env.processor = p
	return env
}

// seedUser registers a provider customer and a matching local user.
func (env *processorEnv) seedUser(t *testing.T, userID, customerID, addr string) {
	t.Helper()

	env.payments.AddCustomer(&payments.Customer{ID: customerID, Email: addr, Name: "Test User"})
	err := env.users.Insert(context.Background(), &domain.User{
		ID:         userID,
		Email:      addr,
		Name:       "Test User",
		CustomerID: customerID,
		CreatedAt:  1_600_000_000_000,
	})
	if err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
}

func eventPayload(t *testing.T, id, eventType string, object any) []byte {
	t.Helper()

	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal object: %v", err)
	}
	payload, err := json.Marshal(domain.WebhookEvent{
		ID:   id,
		Type: eventType,
		Data: domain.WebhookEventData{Object: raw},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func TestProcess_MalformedPayload(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()

	if err := env.processor.Process(ctx, []byte("{not json")); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if err := env.processor.Process(ctx, []byte(`{"type":"customer.created"}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for missing id, got %v", err)
	}
	if err := env.processor.Process(ctx, []byte(`{"id":"evt_1","type":"customer.created"}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for missing data object, got %v", err)
	}
	if err := env.processor.Process(ctx, []byte(`{"id":"evt_1","type":"customer.created","data":{"object":null}}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for null data object, got %v", err)
	}

	letters, _ := env.letters.ListUnresolved(ctx)
	if len(letters) != 0 {
		t.Errorf("malformed payloads must not be dead-lettered, got %d", len(letters))
	}
}

func TestProcess_MissingDataObjectDoesNotConsumeEventID(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	// An envelope without its data object is rejected up front...
	bad := []byte(`{"id":"evt_1","type":"customer.subscription.created"}`)
	if err := env.processor.Process(ctx, bad); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}

	// ...so a corrected redelivery with the same event id still processes.
	payload := eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, domain.SubscriptionObject{
		ID: "sub_1", Customer: "cus_1", Status: "active", PriceID: "price_pro_monthly",
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process corrected redelivery failed: %v", err)
	}

	user, _ := env.users.GetByEmail(ctx, "alice@example.com")
	if user.Subscription == nil || user.Subscription.Plan != "Pro" {
		t.Fatalf("corrected redelivery must write the subscription, got %+v", user.Subscription)
	}
	if env.obs.duplicates != 0 {
		t.Errorf("rejected delivery must not count as a duplicate, got %d", env.obs.duplicates)
	}
}

func TestProcess_SubscriptionCreated(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	payload := eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, domain.SubscriptionObject{
		ID:                 "sub_1",
		Customer:           "cus_1",
		Status:             "active",
		PriceID:            "price_pro_monthly",
		CurrentPeriodStart: 1_700_000_000,
		CurrentPeriodEnd:   1_702_592_000,
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	user, err := env.users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if user.Subscription == nil {
		t.Fatal("expected subscription to be set")
	}
	if user.Subscription.Plan != "Pro" {
		t.Errorf("expected plan Pro, got %s", user.Subscription.Plan)
	}
	if user.Subscription.CurrentPeriodStartMs != 1_700_000_000_000 {
		t.Errorf("expected period start in ms, got %d", user.Subscription.CurrentPeriodStartMs)
	}

	sent := env.emails.Sent()
	if len(sent) != 1 || sent[0].Kind != email.TemplateWelcome {
		t.Fatalf("expected one welcome email, got %+v", sent)
	}
	if sent[0].To != "alice@example.com" {
		t.Errorf("expected email to alice@example.com, got %s", sent[0].To)
	}

	count, _ := env.events.CountByNameInRange(ctx, domain.EventSubscriptionCreated, 0, 2_000_000_000_000)
	if count != 1 {
		t.Errorf("expected one subscription_created event, got %d", count)
	}
}

func TestProcess_UnknownPriceFallsBack(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	payload := eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, domain.SubscriptionObject{
		ID:       "sub_1",
		Customer: "cus_1",
		Status:   "active",
		PriceID:  "price_legacy_grandfathered",
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	user, _ := env.users.GetByEmail(ctx, "alice@example.com")
	if user.Subscription == nil || user.Subscription.Plan != PlanUnknown {
		t.Fatalf("expected plan %q, got %+v", PlanUnknown, user.Subscription)
	}

	letters, _ := env.letters.ListUnresolved(ctx)
	if len(letters) != 0 {
		t.Errorf("unknown price must not dead-letter, got %d letters", len(letters))
	}
}

func TestProcess_PlanChangeEmailSuppressedWhenUnchanged(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	object := domain.SubscriptionObject{
		ID:       "sub_1",
		Customer: "cus_1",
		Status:   "active",
		PriceID:  "price_pro_monthly",
	}
	if err := env.processor.Process(ctx, eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, object)); err != nil {
		t.Fatalf("Process created failed: %v", err)
	}

	// Renewal-style update: same plan, nothing should be emailed.
	if err := env.processor.Process(ctx, eventPayload(t, "evt_2", domain.WebhookSubscriptionUpdated, object)); err != nil {
		t.Fatalf("Process updated failed: %v", err)
	}

	sent := env.emails.Sent()
	if len(sent) != 1 || sent[0].Kind != email.TemplateWelcome {
		t.Fatalf("expected only the welcome email, got %+v", sent)
	}

	// Actual plan change: exactly one plan-change email.
	object.PriceID = "price_business_monthly"
	if err := env.processor.Process(ctx, eventPayload(t, "evt_3", domain.WebhookSubscriptionUpdated, object)); err != nil {
		t.Fatalf("Process upgrade failed: %v", err)
	}

	sent = env.emails.Sent()
	if len(sent) != 2 || sent[1].Kind != email.TemplatePlanChange {
		t.Fatalf("expected a plan change email, got %+v", sent)
	}
	if sent[1].Data["old_plan"] != "Pro" || sent[1].Data["new_plan"] != "Business" {
		t.Errorf("unexpected plan change data: %+v", sent[1].Data)
	}
}

func TestProcess_LookupMissIsNoOp(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()

	// Customer known to the provider but with no local user.
	env.payments.AddCustomer(&payments.Customer{ID: "cus_ghost", Email: "ghost@example.com"})

	payloads := [][]byte{
		eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, domain.SubscriptionObject{
			ID: "sub_1", Customer: "cus_ghost", Status: "active", PriceID: "price_pro_monthly",
		}),
		// Customer the provider itself does not know.
		eventPayload(t, "evt_2", domain.WebhookInvoicePaymentSucceeded, domain.InvoiceObject{
			ID: "in_1", Customer: "cus_missing", AmountPaid: 2900,
		}),
	}
	for _, payload := range payloads {
		if err := env.processor.Process(ctx, payload); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	if sent := env.emails.Sent(); len(sent) != 0 {
		t.Errorf("lookup miss must not email, got %+v", sent)
	}
	letters, _ := env.letters.ListUnresolved(ctx)
	if len(letters) != 0 {
		t.Errorf("lookup miss must not dead-letter, got %d letters", len(letters))
	}
}

func TestProcess_DuplicateDeliverySendsOneEmail(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	payload := eventPayload(t, "evt_1", domain.WebhookInvoicePaymentSucceeded, domain.InvoiceObject{
		ID:         "in_1",
		Customer:   "cus_1",
		AmountPaid: 2900,
	})
	for i := 0; i < 3; i++ {
		if err := env.processor.Process(ctx, payload); err != nil {
			t.Fatalf("Process delivery %d failed: %v", i, err)
		}
	}

	sent := env.emails.Sent()
	if len(sent) != 1 || sent[0].Kind != email.TemplatePaymentConfirmation {
		t.Fatalf("expected exactly one payment confirmation, got %+v", sent)
	}
	if sent[0].Data["amount"] != "$29.00" {
		t.Errorf("expected formatted amount $29.00, got %s", sent[0].Data["amount"])
	}

	count, _ := env.events.CountByNameInRange(ctx, domain.EventPaymentSucceeded, 0, 2_000_000_000_000)
	if count != 1 {
		t.Errorf("expected one payment_succeeded event, got %d", count)
	}
}

func TestProcess_HandlerFailureDeadLetters(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	// Undecodable object for a handled type forces a handler error.
	payload := []byte(`{"id":"evt_bad","type":"customer.subscription.created","data":{"object":[1,2]}}`)
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process must absorb handler failures, got %v", err)
	}

	letters, err := env.letters.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved failed: %v", err)
	}
	if len(letters) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(letters))
	}
	if letters[0].EventID != "evt_bad" || letters[0].EventType != domain.WebhookSubscriptionCreated {
		t.Errorf("unexpected dead letter: %+v", letters[0])
	}
	if letters[0].Reason == "" {
		t.Error("expected a failure reason")
	}
}

func TestProcess_CustomerCreatedProvisionsUser(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()

	payload := eventPayload(t, "evt_1", domain.WebhookCustomerCreated, domain.CustomerObject{
		ID:    "cus_new",
		Email: "bob@example.com",
		Name:  "Bob",
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	user, err := env.users.GetByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("expected user to be provisioned: %v", err)
	}
	if user.CustomerID != "cus_new" {
		t.Errorf("expected customer id cus_new, got %s", user.CustomerID)
	}

	// Redelivery and pre-existing users are no-ops.
	if err := env.processor.Process(ctx, eventPayload(t, "evt_2", domain.WebhookCustomerCreated, domain.CustomerObject{
		ID:    "cus_other",
		Email: "bob@example.com",
	})); err != nil {
		t.Fatalf("Process repeat failed: %v", err)
	}
	again, _ := env.users.GetByEmail(ctx, "bob@example.com")
	if again.CustomerID != "cus_new" {
		t.Errorf("existing user must not be overwritten, got customer id %s", again.CustomerID)
	}
}

func TestProcess_SubscriptionDeleted(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	object := domain.SubscriptionObject{
		ID: "sub_1", Customer: "cus_1", Status: "active", PriceID: "price_starter_monthly",
	}
	if err := env.processor.Process(ctx, eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, object)); err != nil {
		t.Fatalf("Process created failed: %v", err)
	}
	if err := env.processor.Process(ctx, eventPayload(t, "evt_2", domain.WebhookSubscriptionDeleted, object)); err != nil {
		t.Fatalf("Process deleted failed: %v", err)
	}

	user, _ := env.users.GetByEmail(ctx, "alice@example.com")
	if user.Subscription == nil || user.Subscription.Status != "canceled" {
		t.Fatalf("expected canceled subscription, got %+v", user.Subscription)
	}

	count, _ := env.events.CountByNameInRange(ctx, domain.EventSubscriptionCanceled, 0, 2_000_000_000_000)
	if count != 1 {
		t.Errorf("expected one subscription_canceled event, got %d", count)
	}
}

func TestProcess_EmailFailureDoesNotFailEvent(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")
	env.emails.FailWith = errors.New("smtp down")

	payload := eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, domain.SubscriptionObject{
		ID: "sub_1", Customer: "cus_1", Status: "active", PriceID: "price_pro_monthly",
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Subscription write happened before the email attempt.
	user, _ := env.users.GetByEmail(ctx, "alice@example.com")
	if user.Subscription == nil || user.Subscription.Plan != "Pro" {
		t.Fatalf("expected subscription written despite email failure, got %+v", user.Subscription)
	}
	letters, _ := env.letters.ListUnresolved(ctx)
	if len(letters) != 0 {
		t.Errorf("email failure must not dead-letter, got %d letters", len(letters))
	}
}

func TestProcess_ResolvesByStoredCustomerID(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()

	// User known locally by customer id; the provider has no customer
	// record, so only the local fast path can resolve this event.
	err := env.users.Insert(ctx, &domain.User{
		ID:         "user-1",
		Email:      "alice@example.com",
		Name:       "Alice",
		CustomerID: "cus_1",
		CreatedAt:  1_600_000_000_000,
	})
	if err != nil {
		t.Fatalf("insert user failed: %v", err)
	}

	payload := eventPayload(t, "evt_1", domain.WebhookSubscriptionCreated, domain.SubscriptionObject{
		ID: "sub_1", Customer: "cus_1", Status: "active", PriceID: "price_pro_monthly",
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	user, _ := env.users.GetByEmail(ctx, "alice@example.com")
	if user.Subscription == nil || user.Subscription.Plan != "Pro" {
		t.Fatalf("expected subscription written via customer id lookup, got %+v", user.Subscription)
	}
	letters, _ := env.letters.ListUnresolved(ctx)
	if len(letters) != 0 {
		t.Errorf("local resolution must not dead-letter, got %d letters", len(letters))
	}
}

func TestProcess_ObserverCounts(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()
	env.seedUser(t, "user-1", "cus_1", "alice@example.com")

	payload := eventPayload(t, "evt_1", domain.WebhookInvoicePaymentSucceeded, domain.InvoiceObject{
		ID: "in_1", Customer: "cus_1", AmountPaid: 2900,
	})
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process redelivery failed: %v", err)
	}

	bad := []byte(`{"id":"evt_bad","type":"customer.subscription.created","data":{"object":[1]}}`)
	if err := env.processor.Process(ctx, bad); err != nil {
		t.Fatalf("Process must absorb handler failures, got %v", err)
	}

	if got := env.obs.processed[domain.WebhookInvoicePaymentSucceeded+"/ok"]; got != 1 {
		t.Errorf("expected 1 ok invoice event, got %d", got)
	}
	if got := env.obs.processed[domain.WebhookSubscriptionCreated+"/error"]; got != 1 {
		t.Errorf("expected 1 failed subscription event, got %d", got)
	}
	if env.obs.duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", env.obs.duplicates)
	}
	if env.obs.deadLetters != 1 {
		t.Errorf("expected 1 dead letter, got %d", env.obs.deadLetters)
	}
	if got := env.obs.emails[string(email.TemplatePaymentConfirmation)+"/ok"]; got != 1 {
		t.Errorf("expected 1 sent confirmation email, got %d", got)
	}
}

func TestProcess_UnhandledTypeIgnored(t *testing.T) {
	env := newProcessorEnv(t)
	ctx := context.Background()

	payload := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`)
	if err := env.processor.Process(ctx, payload); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	letters, _ := env.letters.ListUnresolved(ctx)
	if len(letters) != 0 {
		t.Errorf("unhandled types must not dead-letter, got %d", len(letters))
	}
}
