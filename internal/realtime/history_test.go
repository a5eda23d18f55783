package realtime

import (
	"testing"

	"admin-pulse/internal/domain"
)

func TestHistory_FIFOBound(t *testing.T) {
	h := NewHistory(100)

	for i := 0; i < 150; i++ {
		h.Append(&domain.AggregatedMetrics{TimestampMs: int64(i)})
	}

	recent := h.Recent(1000)
	if len(recent) != 100 {
		t.Fatalf("expected exactly 100 entries, got %d", len(recent))
	}

	// Oldest-to-newest, holding the 100 most recent ticks (50..149)
	if recent[0].TimestampMs != 50 {
		t.Errorf("oldest entry: got %d, want 50", recent[0].TimestampMs)
	}
	if recent[99].TimestampMs != 149 {
		t.Errorf("newest entry: got %d, want 149", recent[99].TimestampMs)
	}
}

func TestHistory_RecentFewerThanAsked(t *testing.T) {
	h := NewHistory(100)
	h.Append(&domain.AggregatedMetrics{TimestampMs: 1})
	h.Append(&domain.AggregatedMetrics{TimestampMs: 2})

	recent := h.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].TimestampMs != 1 || recent[1].TimestampMs != 2 {
		t.Errorf("wrong order: %d, %d", recent[0].TimestampMs, recent[1].TimestampMs)
	}
}

func TestHistory_LatestEmpty(t *testing.T) {
	h := NewHistory(0)
	if h.Latest() != nil {
		t.Errorf("expected nil latest on empty history")
	}
}
