package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"admin-pulse/internal/dashboard"
	"admin-pulse/internal/domain"
	"admin-pulse/internal/realtime"
	"admin-pulse/internal/storage"
	"admin-pulse/internal/webhook"
)

// maxWebhookBody bounds inbound webhook payload size.
const maxWebhookBody = 1 << 20

// apiServer holds the HTTP API's collaborators.
type apiServer struct {
	aggregator  *realtime.Aggregator
	processor   *webhook.Processor
	deadLetters storage.DeadLetterStore
	hub         *dashboard.Hub
	logger      *log.Logger
}

// routes wires all API endpoints.
func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/ws", s.hub)

	mux.HandleFunc("POST /webhooks/payments", s.handleWebhook)

	mux.HandleFunc("GET /api/metrics", s.handleLatestMetrics)
	mux.HandleFunc("GET /api/metrics/history", s.handleMetricsHistory)

	mux.HandleFunc("GET /api/alerts", s.handleActiveAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/acknowledge", s.handleAcknowledgeAlert)

	mux.HandleFunc("GET /api/thresholds", s.handleListThresholds)
	mux.HandleFunc("POST /api/thresholds", s.handleAddThreshold)
	mux.HandleFunc("DELETE /api/thresholds/{index}", s.handleRemoveThreshold)

	mux.HandleFunc("GET /api/dead-letters", s.handleListDeadLetters)
	mux.HandleFunc("POST /api/dead-letters/{id}/resolve", s.handleResolveDeadLetter)

	return mux
}

// handleWebhook accepts one provider delivery. Only an unparseable payload
// is rejected; handler failures are dead-lettered and acknowledged so the
// provider stops retrying.
func (s *apiServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.processor.Process(r.Context(), payload); err != nil {
		if errors.Is(err, webhook.ErrMalformedPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Printf("webhook processing error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *apiServer) handleLatestMetrics(w http.ResponseWriter, _ *http.Request) {
	latest := s.aggregator.LatestMetrics()
	if latest == nil {
		writeError(w, http.StatusNotFound, "no metrics collected yet")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *apiServer) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := realtime.DefaultHistorySize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	history := s.aggregator.MetricsHistory(limit)
	if history == nil {
		history = []*domain.AggregatedMetrics{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *apiServer) handleActiveAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.aggregator.ActiveAlerts()
	if alerts == nil {
		alerts = []*domain.RealtimeAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *apiServer) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.aggregator.AcknowledgeAlert(id) {
		writeError(w, http.StatusNotFound, "unknown alert id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
}

func (s *apiServer) handleListThresholds(w http.ResponseWriter, _ *http.Request) {
	rules := s.aggregator.Thresholds()
	if rules == nil {
		rules = []domain.ThresholdConfig{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *apiServer) handleAddThreshold(w http.ResponseWriter, r *http.Request) {
	var rule domain.ThresholdConfig
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid threshold payload")
		return
	}
	if err := validateThreshold(rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.aggregator.AddThreshold(rule)
	writeJSON(w, http.StatusCreated, rule)
}

func (s *apiServer) handleRemoveThreshold(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	removed := s.aggregator.RemoveThreshold(index)
	if removed == nil {
		writeError(w, http.StatusNotFound, "no threshold at index")
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (s *apiServer) handleListDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := s.deadLetters.ListUnresolved(r.Context())
	if err != nil {
		s.logger.Printf("list dead letters failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if letters == nil {
		letters = []*domain.DeadLetter{}
	}
	writeJSON(w, http.StatusOK, letters)
}

func (s *apiServer) handleResolveDeadLetter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deadLetters.MarkResolved(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown dead letter id")
			return
		}
		s.logger.Printf("resolve dead letter failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}

func validateThreshold(rule domain.ThresholdConfig) error {
	if rule.Metric == "" {
		return errors.New("metric is required")
	}
	switch rule.Operator {
	case domain.OperatorGT, domain.OperatorLT, domain.OperatorEQ, domain.OperatorNE:
	default:
		return errors.New("operator must be one of gt, lt, eq, ne")
	}
	switch rule.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	default:
		return errors.New("severity must be one of low, medium, high, critical")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
