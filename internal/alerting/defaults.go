package alerting

import "admin-pulse/internal/domain"

// DefaultThresholds returns the seed rule set applied when no rules are
// configured explicitly.
func DefaultThresholds() []domain.ThresholdConfig {
	return []domain.ThresholdConfig{
		{Metric: domain.MetricActiveUsers, Operator: domain.OperatorGT, Value: 1000, TimeWindowMinutes: 5, Severity: domain.SeverityMedium},
		{Metric: domain.MetricBounceRate, Operator: domain.OperatorGT, Value: 50, TimeWindowMinutes: 60, Severity: domain.SeverityHigh},
		{Metric: domain.MetricAvgSessionDuration, Operator: domain.OperatorLT, Value: 60, TimeWindowMinutes: 60, Severity: domain.SeverityMedium},
		{Metric: domain.MetricConversions, Operator: domain.OperatorLT, Value: 5, TimeWindowMinutes: 60, Severity: domain.SeverityCritical},
	}
}
