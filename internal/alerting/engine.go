// Package alerting holds the threshold rule engine and the alert store
// behind the realtime pipeline.
package alerting

import (
	"fmt"
	"sync"

	"admin-pulse/internal/domain"
)

// Engine evaluates threshold rules against metric snapshots.
// The rule list is ordered and mutable at runtime; no uniqueness
// constraint applies, so multiple rules may target the same metric.
type Engine struct {
	mu    sync.RWMutex
	rules []domain.ThresholdConfig
}

// NewEngine creates an engine seeded with the given rules.
func NewEngine(rules []domain.ThresholdConfig) *Engine {
	return &Engine{rules: append([]domain.ThresholdConfig(nil), rules...)}
}

// Evaluate checks every rule against the snapshot and returns one alert
// per violated rule. No deduplication or suppression window is applied:
// a metric parked past its bound fires again on every snapshot.
func (e *Engine) Evaluate(snapshot *domain.AggregatedMetrics) []*domain.RealtimeAlert {
	e.mu.RLock()
	rules := append([]domain.ThresholdConfig(nil), e.rules...)
	e.mu.RUnlock()

	var alerts []*domain.RealtimeAlert
	for _, rule := range rules {
		value := snapshot.NumericField(rule.Metric)
		if !compare(value, rule.Operator, rule.Value) {
			continue
		}
		alerts = append(alerts, &domain.RealtimeAlert{
			ID:          NewAlertID(snapshot.TimestampMs),
			Type:        domain.AlertTypeThreshold,
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("Threshold exceeded: %s", rule.Metric),
			Message: fmt.Sprintf("%s is %s %g (current value: %g)",
				rule.Metric, describeOperator(rule.Operator), rule.Value, value),
			TimestampMs: snapshot.TimestampMs,
			Metadata: &domain.AlertMetadata{
				Metric:    rule.Metric,
				Threshold: rule.Value,
				Value:     value,
				Operator:  rule.Operator,
			},
		})
	}
	return alerts
}

// Add appends a rule to the list.
func (e *Engine) Add(rule domain.ThresholdConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// Remove deletes the rule at the given position and returns it.
// Out-of-range indexes are a no-op returning nil.
func (e *Engine) Remove(index int) *domain.ThresholdConfig {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.rules) {
		return nil
	}
	removed := e.rules[index]
	e.rules = append(e.rules[:index], e.rules[index+1:]...)
	return &removed
}

// Thresholds returns a copy of the current rule list.
func (e *Engine) Thresholds() []domain.ThresholdConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.ThresholdConfig(nil), e.rules...)
}

// compare applies a threshold operator. Unknown operators never match.
func compare(value float64, op domain.Operator, bound float64) bool {
	switch op {
	case domain.OperatorGT:
		return value > bound
	case domain.OperatorLT:
		return value < bound
	case domain.OperatorEQ:
		return value == bound
	case domain.OperatorNE:
		return value != bound
	default:
		return false
	}
}

// describeOperator renders an operator for alert messages.
func describeOperator(op domain.Operator) string {
	switch op {
	case domain.OperatorGT:
		return "above"
	case domain.OperatorLT:
		return "below"
	case domain.OperatorEQ:
		return "equal to"
	case domain.OperatorNE:
		return "not equal to"
	default:
		return string(op)
	}
}
