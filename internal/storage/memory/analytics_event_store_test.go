package memory

import (
	"context"
	"errors"
	"testing"

	"admin-pulse/internal/domain"
	"admin-pulse/internal/storage"
)

func TestAnalyticsEventStore_InsertDuplicate(t *testing.T) {
	store := NewAnalyticsEventStore()
	ctx := context.Background()

	event := &domain.AnalyticsEvent{
		EventID:     "evt_abc",
		Name:        domain.EventSubscriptionCreated,
		TimestampMs: 1000,
	}

	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.Insert(ctx, event)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestAnalyticsEventStore_CountByNameInRange(t *testing.T) {
	store := NewAnalyticsEventStore()
	ctx := context.Background()

	events := []*domain.AnalyticsEvent{
		{EventID: "e1", Name: domain.EventConversion, TimestampMs: 1000},
		{EventID: "e2", Name: domain.EventConversion, TimestampMs: 2000},
		{EventID: "e3", Name: domain.EventPaymentFailed, TimestampMs: 2000},
		{EventID: "e4", Name: domain.EventConversion, TimestampMs: 5000}, // outside range
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	count, err := store.CountByNameInRange(ctx, domain.EventConversion, 0, 3000)
	if err != nil {
		t.Fatalf("CountByNameInRange failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 conversions, got %d", count)
	}
}

func TestAnalyticsEventStore_RevenueBuckets(t *testing.T) {
	store := NewAnalyticsEventStore()
	ctx := context.Background()

	events := []*domain.AnalyticsEvent{
		{EventID: "e1", Name: domain.EventPaymentSucceeded, TimestampMs: 100,
			Properties: map[string]string{"amount_cents": "2500"}},
		{EventID: "e2", Name: domain.EventPaymentSucceeded, TimestampMs: 1100,
			Properties: map[string]string{"amount_cents": "9900"}},
		{EventID: "e3", Name: domain.EventPaymentFailed, TimestampMs: 1200,
			Properties: map[string]string{"amount_cents": "9900"}}, // not revenue
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	buckets, err := store.RevenueBuckets(ctx, 0, 2000, 1000)
	if err != nil {
		t.Fatalf("RevenueBuckets failed: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Sum != 2500 {
		t.Errorf("bucket 0 sum: got %f, want 2500", buckets[0].Sum)
	}
	if buckets[1].Sum != 9900 {
		t.Errorf("bucket 1 sum: got %f, want 9900", buckets[1].Sum)
	}
}
