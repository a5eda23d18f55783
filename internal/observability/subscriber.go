package observability

import (
	"time"

	"admin-pulse/internal/metrics"
	"admin-pulse/internal/realtime"
	"admin-pulse/internal/webhook"
)

var (
	_ realtime.TickObserver = (*Metrics)(nil)
	_ webhook.Observer      = (*Metrics)(nil)
	_ metrics.QueryRecorder = (*Metrics)(nil)
)

// ObserveTick records one aggregation tick outcome.
func (m *Metrics) ObserveTick(duration time.Duration, historyLen int, err error) {
	m.TickDuration.Observe(duration.Seconds())
	m.HistorySize.Set(float64(historyLen))
	if err == nil {
		m.LastTickSuccess.SetToCurrentTime()
	}
}

// RealtimeSubscriber adapts the metrics set into a broadcast subscriber so
// every published event is counted, and alert lifecycle events move the
// alerting counters.
func (m *Metrics) RealtimeSubscriber() realtime.Subscriber {
	return func(event realtime.Event) {
		m.EventsBroadcast.WithLabelValues(string(event.Type)).Inc()

		switch event.Type {
		case realtime.EventMetricsUpdated:
			m.TicksTotal.Inc()
		case realtime.EventAggregationError:
			m.TickErrors.Inc()
		case realtime.EventAlertGenerated:
			if event.Alert != nil {
				m.AlertsGenerated.WithLabelValues(string(event.Alert.Severity)).Inc()
			}
			m.ActiveAlerts.Inc()
		case realtime.EventAlertAcknowledged:
			m.AlertsAcknowledged.Inc()
			m.ActiveAlerts.Dec()
		}
	}
}
