// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Aggregation metrics
	TicksTotal      prometheus.Counter
	TickErrors      prometheus.Counter
	TickDuration    prometheus.Histogram
	HistorySize     prometheus.Gauge
	LastTickSuccess prometheus.Gauge

	// Alerting metrics
	AlertsGenerated    *prometheus.CounterVec
	AlertsAcknowledged prometheus.Counter
	ActiveAlerts       prometheus.Gauge

	// Webhook metrics
	WebhooksProcessed *prometheus.CounterVec
	WebhookDuplicates prometheus.Counter
	DeadLetters       prometheus.Counter

	// Email metrics
	EmailsSent *prometheus.CounterVec

	// Realtime metrics
	WSClients        prometheus.Gauge
	EventsBroadcast  *prometheus.CounterVec
	SubscriberPanics prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "admin_pulse"
	}

	return &Metrics{
		// Aggregation metrics
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "ticks_total",
			Help:      "Total number of aggregation ticks executed",
		}),
		TickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "tick_errors_total",
			Help:      "Total number of aggregation ticks that failed",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "tick_duration_seconds",
			Help:      "Aggregation tick duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		HistorySize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "history_size",
			Help:      "Current number of snapshots retained in history",
		}),
		LastTickSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of the last successful aggregation tick",
		}),

		// Alerting metrics
		AlertsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_generated_total",
			Help:      "Total number of alerts generated by severity",
		}, []string{"severity"}),
		AlertsAcknowledged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_acknowledged_total",
			Help:      "Total number of alerts acknowledged",
		}),
		ActiveAlerts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "active_alerts",
			Help:      "Current number of unacknowledged alerts",
		}),

		// Webhook metrics
		WebhooksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_processed_total",
			Help:      "Total number of webhook events processed by type and status",
		}, []string{"event_type", "status"}),
		WebhookDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "duplicate_deliveries_total",
			Help:      "Total number of duplicate webhook deliveries skipped",
		}),
		DeadLetters: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "dead_letters_total",
			Help:      "Total number of webhook events dead-lettered",
		}),

		// Email metrics
		EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "sends_total",
			Help:      "Total number of email sends by template and status",
		}, []string{"template", "status"}),

		// Realtime metrics
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "ws_clients",
			Help:      "Current number of connected WebSocket clients",
		}),
		EventsBroadcast: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_broadcast_total",
			Help:      "Total number of realtime events broadcast by type",
		}, []string{"event_type"}),
		SubscriberPanics: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscriber_panics_total",
			Help:      "Total number of recovered subscriber panics",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWebhookProcessed records one processed webhook event.
func (m *Metrics) RecordWebhookProcessed(eventType, status string) {
	m.WebhooksProcessed.WithLabelValues(eventType, status).Inc()
}

// RecordWebhookDuplicate records one skipped duplicate delivery.
func (m *Metrics) RecordWebhookDuplicate() {
	m.WebhookDuplicates.Inc()
}

// RecordDeadLetter records one stored dead letter.
func (m *Metrics) RecordDeadLetter() {
	m.DeadLetters.Inc()
}

// RecordEmailSent records one email send attempt.
func (m *Metrics) RecordEmailSent(template, status string) {
	m.EmailsSent.WithLabelValues(template, status).Inc()
}

// RecordDBQuery records one database query outcome.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
