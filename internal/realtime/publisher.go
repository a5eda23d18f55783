package realtime

import (
	"log"
	"sync"

	"admin-pulse/internal/domain"
)

// EventType identifies a pipeline lifecycle event.
type EventType string

const (
	EventMetricsUpdated    EventType = "metrics_updated"
	EventAggregationError  EventType = "aggregation_error"
	EventAlertGenerated    EventType = "alert_generated"
	EventAlertAcknowledged EventType = "alert_acknowledged"
	EventThresholdAdded    EventType = "threshold_added"
	EventThresholdRemoved  EventType = "threshold_removed"
)

// Event is one published lifecycle event. Exactly one payload field is
// set, matching the event type.
type Event struct {
	Type      EventType                 `json:"type"`
	Metrics   *domain.AggregatedMetrics `json:"metrics,omitempty"`
	Alert     *domain.RealtimeAlert     `json:"alert,omitempty"`
	Threshold *domain.ThresholdConfig   `json:"threshold,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// Subscriber receives published events. Delivery is synchronous within
// the publishing call; subscribers needing long work should hand off to
// their own goroutine or queue.
type Subscriber func(Event)

// Publisher broadcasts lifecycle events to all subscribers. Fan-out, not
// queue-with-ack: every subscriber independently receives every event,
// and a panicking subscriber cannot break delivery to the others.
type Publisher struct {
	mu      sync.RWMutex
	logger  *log.Logger
	nextID  int
	subs    map[int]Subscriber
	onPanic func()
}

// NewPublisher creates a publisher.
func NewPublisher(logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		logger: logger,
		subs:   make(map[int]Subscriber),
	}
}

// SetPanicHook registers a callback invoked after every recovered
// subscriber panic. Set it before the publisher is shared across
// goroutines.
func (p *Publisher) SetPanicHook(fn func()) {
	p.onPanic = fn
}

// Subscribe registers a subscriber and returns its unsubscribe function.
func (p *Publisher) Subscribe(fn Subscriber) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Publish delivers the event to every subscriber in turn.
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	subs := make([]Subscriber, 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.RUnlock()

	for _, fn := range subs {
		p.deliver(fn, event)
	}
}

// deliver isolates one subscriber invocation behind a recover boundary.
func (p *Publisher) deliver(fn Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("subscriber panicked on %s event: %v", event.Type, r)
			if p.onPanic != nil {
				p.onPanic()
			}
		}
	}()
	fn(event)
}
