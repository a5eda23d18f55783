// Package realtime provides the periodic metrics aggregation pipeline:
// one snapshot per tick, bounded history, threshold evaluation, and
// broadcast publication of lifecycle events.
package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"admin-pulse/internal/alerting"
	"admin-pulse/internal/domain"
	"admin-pulse/internal/metrics"
)

// DefaultInterval is the aggregation tick period.
const DefaultInterval = 30 * time.Second

// Window sizes used when assembling one snapshot.
const (
	activeUserWindow = 5 * time.Minute
	hourWindow       = time.Hour
	growthLookback   = 24 * time.Hour
	growthBucket     = time.Hour
	topPagesLimit    = 10
)

// TickObserver receives the outcome of every executed aggregation tick.
type TickObserver interface {
	ObserveTick(duration time.Duration, historyLen int, err error)
}

// Aggregator runs the periodic aggregation loop. It is an injectable
// service: all collaborators arrive through Options, so tests can
// substitute fakes and multiple instances can coexist.
type Aggregator struct {
	source    *metrics.Source
	engine    *alerting.Engine
	alerts    *alerting.Store
	publisher *Publisher
	history   *History
	interval  time.Duration
	logger    *log.Logger
	observer  TickObserver
	now       func() time.Time

	mu      sync.Mutex // guards running/cancel/done
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// tickInFlight skips a tick when the previous one is still running,
	// so slow windowed queries cannot pile up overlapping ticks.
	tickInFlight atomic.Bool
}

// Options contains configuration for creating an Aggregator.
type Options struct {
	Source     *metrics.Source  // required
	Engine     *alerting.Engine // Default: engine seeded with DefaultThresholds
	AlertStore *alerting.Store  // Default: NewStore(0)
	Publisher  *Publisher       // Default: NewPublisher(Logger)
	History    *History         // Default: NewHistory(0)
	Interval   time.Duration    // Default: DefaultInterval
	Logger     *log.Logger      // Default: log.Default()
	Observer   TickObserver     // optional tick instrumentation
	Now        func() time.Time // Default: time.Now, injectable for tests
}

// NewAggregator creates a new aggregator.
func NewAggregator(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	engine := opts.Engine
	if engine == nil {
		engine = alerting.NewEngine(alerting.DefaultThresholds())
	}

	alerts := opts.AlertStore
	if alerts == nil {
		alerts = alerting.NewStore(0)
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = NewPublisher(logger)
	}

	history := opts.History
	if history == nil {
		history = NewHistory(0)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Aggregator{
		source:    opts.Source,
		engine:    engine,
		alerts:    alerts,
		publisher: publisher,
		history:   history,
		interval:  interval,
		logger:    logger,
		observer:  opts.Observer,
		now:       now,
	}
}

// Publisher exposes the aggregator's event bus for external consumers.
func (a *Aggregator) Publisher() *Publisher {
	return a.publisher
}

// Start begins the aggregation loop. Calling Start while running is a
// guarded no-op.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		a.logger.Printf("aggregator already running, start ignored")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.running = true

	go func() {
		defer close(done)
		a.run(ctx)
	}()
}

// Stop cancels the aggregation loop and waits for it to exit.
// Safe to call when not started.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	cancel := a.cancel
	done := a.done
	a.running = false
	a.cancel = nil
	a.mu.Unlock()

	cancel()
	<-done
	a.logger.Printf("aggregator stopped")
}

// run drives the tick loop until the context is cancelled. A failed tick
// never stops the loop; the next tick is still scheduled.
func (a *Aggregator) run(ctx context.Context) {
	a.logger.Printf("aggregator started, interval %v", a.interval)

	// Produce a first snapshot immediately so consumers do not wait a
	// full interval after startup.
	a.tick(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick executes one aggregation pass and reports its outcome to the
// observer, if any.
func (a *Aggregator) tick(ctx context.Context) {
	if !a.tickInFlight.CompareAndSwap(false, true) {
		a.logger.Printf("previous aggregation tick still running, skipping")
		return
	}
	defer a.tickInFlight.Store(false)

	start := time.Now()
	err := a.runTick(ctx)
	if a.observer != nil {
		a.observer.ObserveTick(time.Since(start), a.history.Len(), err)
	}
}

// runTick performs one aggregation pass: collect, cache, evaluate, publish.
func (a *Aggregator) runTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation tick failed: %v", r)
			a.logger.Print(err)
			a.publisher.Publish(Event{Type: EventAggregationError, Error: err.Error()})
		}
	}()

	snapshot := a.collect(ctx)
	a.history.Append(snapshot)

	for _, alert := range a.engine.Evaluate(snapshot) {
		a.alerts.Add(alert)
		a.publisher.Publish(Event{Type: EventAlertGenerated, Alert: alert})
	}

	a.publisher.Publish(Event{Type: EventMetricsUpdated, Metrics: snapshot})
	return nil
}

// collect issues all windowed queries concurrently and assembles one
// snapshot. A failed query leaves its field at a safe zero value and is
// logged; it never aborts the rest of the tick.
func (a *Aggregator) collect(ctx context.Context) *domain.AggregatedMetrics {
	nowMs := a.now().UnixMilli()
	tickStartMs := nowMs - a.interval.Milliseconds()
	fiveMinAgoMs := nowMs - activeUserWindow.Milliseconds()
	hourAgoMs := nowMs - hourWindow.Milliseconds()
	dayAgoMs := nowMs - growthLookback.Milliseconds()

	snapshot := &domain.AggregatedMetrics{TimestampMs: nowMs}

	// Previous snapshot, for top-page change percentages.
	var prevTopPages []domain.TopPage
	if prev := a.history.Latest(); prev != nil {
		prevTopPages = prev.TopPages
	}

	wg := conc.NewWaitGroup()

	wg.Go(func() {
		count, err := a.source.ActiveUsers(ctx, fiveMinAgoMs)
		if err != nil {
			a.logger.Printf("active users query failed: %v", err)
			return
		}
		snapshot.ActiveUsers = count
	})

	wg.Go(func() {
		count, err := a.source.PageViews(ctx, tickStartMs, nowMs)
		if err != nil {
			a.logger.Printf("page views query failed: %v", err)
			return
		}
		snapshot.PageViews = count
	})

	wg.Go(func() {
		count, err := a.source.Events(ctx, tickStartMs, nowMs)
		if err != nil {
			a.logger.Printf("events query failed: %v", err)
			return
		}
		snapshot.Events = count
	})

	wg.Go(func() {
		count, err := a.source.Conversions(ctx, hourAgoMs, nowMs)
		if err != nil {
			a.logger.Printf("conversions query failed: %v", err)
			return
		}
		snapshot.Conversions = count
	})

	wg.Go(func() {
		sessions, err := a.source.Sessions(ctx, hourAgoMs, nowMs)
		if err != nil {
			a.logger.Printf("sessions query failed: %v", err)
			return
		}
		snapshot.BounceRate = metrics.ComputeBounceRate(sessions)
		snapshot.AvgSessionDuration = metrics.ComputeAvgSessionDuration(sessions)
	})

	wg.Go(func() {
		pages, err := a.source.TopPages(ctx, hourAgoMs, nowMs, topPagesLimit)
		if err != nil {
			a.logger.Printf("top pages query failed: %v", err)
			return
		}
		snapshot.TopPages = metrics.TopPagesWithChange(pages, prevTopPages)
	})

	wg.Go(func() {
		buckets, err := a.source.UserGrowthBuckets(ctx, dayAgoMs, nowMs, growthBucket.Milliseconds())
		if err != nil {
			a.logger.Printf("user growth query failed: %v", err)
			return
		}
		snapshot.UserGrowth = metrics.GrowthSeries(buckets, metrics.CountValue)
	})

	wg.Go(func() {
		buckets, err := a.source.RevenueBuckets(ctx, dayAgoMs, nowMs, growthBucket.Milliseconds())
		if err != nil {
			a.logger.Printf("revenue query failed: %v", err)
			return
		}
		snapshot.RevenueGrowth = metrics.GrowthSeries(buckets, metrics.RevenueValue)
		// The final bucket covers the trailing hour exactly.
		if len(buckets) > 0 {
			snapshot.Revenue = metrics.RevenueValue(buckets[len(buckets)-1])
		}
	})

	wg.Wait()
	return snapshot
}

// LatestMetrics returns the most recent snapshot, or nil before the
// first tick.
func (a *Aggregator) LatestMetrics() *domain.AggregatedMetrics {
	return a.history.Latest()
}

// MetricsHistory returns up to n most-recent snapshots, oldest to newest.
func (a *Aggregator) MetricsHistory(n int) []*domain.AggregatedMetrics {
	return a.history.Recent(n)
}

// ActiveAlerts returns all unacknowledged alerts, newest first.
func (a *Aggregator) ActiveAlerts() []*domain.RealtimeAlert {
	return a.alerts.ActiveAlerts()
}

// AcknowledgeAlert acknowledges an alert by id. Returns false for
// unknown ids. Re-acknowledging is idempotent and publishes no
// duplicate event.
func (a *Aggregator) AcknowledgeAlert(id string) bool {
	alert, changed := a.alerts.Acknowledge(id)
	if alert == nil {
		return false
	}
	if changed {
		a.publisher.Publish(Event{Type: EventAlertAcknowledged, Alert: alert})
	}
	return true
}

// AddThreshold appends a rule to the engine's list.
func (a *Aggregator) AddThreshold(rule domain.ThresholdConfig) {
	a.engine.Add(rule)
	a.publisher.Publish(Event{Type: EventThresholdAdded, Threshold: &rule})
}

// RemoveThreshold removes the rule at the given position. Out-of-range
// indexes are a no-op returning nil.
func (a *Aggregator) RemoveThreshold(index int) *domain.ThresholdConfig {
	removed := a.engine.Remove(index)
	if removed != nil {
		a.publisher.Publish(Event{Type: EventThresholdRemoved, Threshold: removed})
	}
	return removed
}

// Thresholds returns a copy of the current rule list.
func (a *Aggregator) Thresholds() []domain.ThresholdConfig {
	return a.engine.Thresholds()
}
