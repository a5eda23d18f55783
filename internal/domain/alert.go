package domain

// Severity classifies alerts and threshold rules.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Operator is a threshold comparison operator.
type Operator string

const (
	OperatorGT Operator = "gt"
	OperatorLT Operator = "lt"
	OperatorEQ Operator = "eq"
	OperatorNE Operator = "ne"
)

// AlertType classifies the origin of an alert.
type AlertType string

const (
	AlertTypeThreshold AlertType = "threshold"
	AlertTypeAnomaly   AlertType = "anomaly"
	AlertTypeSystem    AlertType = "system"
	AlertTypeError     AlertType = "error"
)

// ThresholdConfig is one declarative rule over a snapshot metric.
// Rules are held in an ordered list; multiple rules may target the same metric.
type ThresholdConfig struct {
	Metric   string   `json:"metric"` // one of the Metric* field names
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
	// TimeWindowMinutes is reserved. Evaluation currently uses only the
	// latest snapshot's instantaneous value.
	TimeWindowMinutes int      `json:"timeWindow"`
	Severity          Severity `json:"severity"`
}

// AlertMetadata carries the triggering context of a threshold alert.
type AlertMetadata struct {
	Metric    string   `json:"metric"`
	Threshold float64  `json:"threshold"`
	Value     float64  `json:"value"`
	Operator  Operator `json:"operator"`
}

// RealtimeAlert is a generated alert. Mutated only by acknowledgement,
// which is irreversible; alerts are never deleted, only archived.
type RealtimeAlert struct {
	ID           string         `json:"id"` // alert_<unixms>_<random>
	Type         AlertType      `json:"type"`
	Severity     Severity       `json:"severity"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	TimestampMs  int64          `json:"timestamp"`
	Acknowledged bool           `json:"acknowledged"`
	Metadata     *AlertMetadata `json:"metadata,omitempty"`
}
