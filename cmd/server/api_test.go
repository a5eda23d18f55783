package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"admin-pulse/internal/alerting"
	"admin-pulse/internal/dashboard"
	"admin-pulse/internal/domain"
	"admin-pulse/internal/email"
	"admin-pulse/internal/metrics"
	"admin-pulse/internal/payments/stub"
	"admin-pulse/internal/realtime"
	"admin-pulse/internal/storage/memory"
	"admin-pulse/internal/webhook"
)

func newTestAPI(t *testing.T) (*apiServer, *memory.UserStore) {
	t.Helper()

	discard := log.New(io.Discard, "", 0)
	users := memory.NewUserStore()
	events := memory.NewAnalyticsEventStore()
	deadLetters := memory.NewDeadLetterStore()

	source := metrics.NewSource(metrics.SourceOptions{
		SessionStore:        memory.NewSessionStore(),
		PageViewStore:       memory.NewPageViewStore(),
		AnalyticsEventStore: events,
	})
	aggregator := realtime.NewAggregator(realtime.Options{
		Source: source,
		Engine: alerting.NewEngine(alerting.DefaultThresholds()),
		Logger: discard,
	})

	processor, err := webhook.NewProcessor(webhook.Options{
		Users:       users,
		Events:      events,
		DeadLetters: deadLetters,
		Idempotency: webhook.NewMemoryIdempotencyStore(),
		Payments:    stub.NewClient(),
		Emails:      email.NewRecorder(),
		Logger:      discard,
	})
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	hub, err := dashboard.NewHub(dashboard.Options{
		Publisher: aggregator.Publisher(),
		Logger:    discard,
	})
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}

	return &apiServer{
		aggregator:  aggregator,
		processor:   processor,
		deadLetters: deadLetters,
		hub:         hub,
		logger:      discard,
	}, users
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPI_WebhookMalformedPayload(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.routes()

	rec := doRequest(t, handler, http.MethodPost, "/webhooks/payments", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPI_WebhookCustomerCreated(t *testing.T) {
	api, users := newTestAPI(t)
	handler := api.routes()

	body := `{"id":"evt_1","type":"customer.created","data":{"object":{"id":"cus_1","email":"alice@example.com","name":"Alice"}}}`
	rec := doRequest(t, handler, http.MethodPost, "/webhooks/payments", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	user, err := users.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("expected user provisioned: %v", err)
	}
	if user.CustomerID != "cus_1" {
		t.Errorf("expected customer id cus_1, got %s", user.CustomerID)
	}
}

func TestAPI_MetricsBeforeFirstTick(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.routes()

	rec := doRequest(t, handler, http.MethodGet, "/api/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first tick, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/metrics/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty history array, got %s", body)
	}
}

func TestAPI_ThresholdLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.routes()

	rec := doRequest(t, handler, http.MethodGet, "/api/thresholds", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rules []domain.ThresholdConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &rules); err != nil {
		t.Fatalf("unmarshal thresholds: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected 4 default thresholds, got %d", len(rules))
	}

	// Invalid operator is rejected.
	rec = doRequest(t, handler, http.MethodPost, "/api/thresholds",
		`{"metric":"page_views","operator":"gte","value":10,"severity":"low"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid operator, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/thresholds",
		`{"metric":"page_views","operator":"gt","value":10,"severity":"low"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodDelete, "/api/thresholds/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 removing added threshold, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/api/thresholds/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for out-of-range index, got %d", rec.Code)
	}
}

func TestAPI_AcknowledgeUnknownAlert(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.routes()

	rec := doRequest(t, handler, http.MethodPost, "/api/alerts/alert_123/acknowledge", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAPI_DeadLetters(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.routes()

	// A handled-type event with an undecodable object dead-letters.
	body := `{"id":"evt_bad","type":"customer.subscription.created","data":{"object":[1]}}`
	rec := doRequest(t, handler, http.MethodPost, "/webhooks/payments", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/dead-letters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var letters []domain.DeadLetter
	if err := json.Unmarshal(rec.Body.Bytes(), &letters); err != nil {
		t.Fatalf("unmarshal dead letters: %v", err)
	}
	if len(letters) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(letters))
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/dead-letters/"+letters[0].ID+"/resolve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 resolving, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/dead-letters/ghost/resolve", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
}
