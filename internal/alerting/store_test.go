package alerting

import (
	"fmt"
	"testing"

	"admin-pulse/internal/domain"
)

func TestStore_ActiveAlertsNewestFirst(t *testing.T) {
	store := NewStore(0)

	for i := 0; i < 3; i++ {
		store.Add(&domain.RealtimeAlert{
			ID:          fmt.Sprintf("a%d", i),
			TimestampMs: int64(1000 + i),
		})
	}

	active := store.ActiveAlerts()
	if len(active) != 3 {
		t.Fatalf("expected 3 active alerts, got %d", len(active))
	}
	if active[0].ID != "a2" || active[2].ID != "a0" {
		t.Errorf("wrong order: %s ... %s", active[0].ID, active[2].ID)
	}
}

func TestStore_AcknowledgeUnknown(t *testing.T) {
	store := NewStore(0)

	alert, changed := store.Acknowledge("missing")
	if alert != nil || changed {
		t.Errorf("expected (nil, false) for unknown id, got (%+v, %v)", alert, changed)
	}
}

func TestStore_AcknowledgeIsIdempotent(t *testing.T) {
	store := NewStore(0)
	store.Add(&domain.RealtimeAlert{ID: "a1", TimestampMs: 1})

	alert, changed := store.Acknowledge("a1")
	if alert == nil || !changed {
		t.Fatalf("first acknowledge: expected state change")
	}
	if !alert.Acknowledged {
		t.Errorf("alert not flagged acknowledged")
	}

	// Second acknowledge finds the archived alert but changes nothing
	alert, changed = store.Acknowledge("a1")
	if alert == nil {
		t.Fatalf("second acknowledge: alert should still be known")
	}
	if changed {
		t.Errorf("second acknowledge must not report a state change")
	}
	if !alert.Acknowledged {
		t.Errorf("acknowledged flag must stay true")
	}

	if got := len(store.ActiveAlerts()); got != 0 {
		t.Errorf("acknowledged alert still active: %d", got)
	}
}

func TestStore_ArchiveBounded(t *testing.T) {
	store := NewStore(5)

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("a%d", i)
		store.Add(&domain.RealtimeAlert{ID: id, TimestampMs: int64(i)})
		store.Acknowledge(id)
	}

	// Oldest acknowledged alerts fall off; a0 is gone, a9 remains
	if alert, _ := store.Acknowledge("a0"); alert != nil {
		t.Errorf("expected evicted alert a0 to be unknown")
	}
	if alert, _ := store.Acknowledge("a9"); alert == nil {
		t.Errorf("expected a9 to remain archived")
	}
}
