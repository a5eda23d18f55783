package domain

// AggregatedMetrics is one immutable snapshot produced per aggregation tick.
// Identified implicitly by its timestamp.
type AggregatedMetrics struct {
	TimestampMs        int64         `json:"timestamp"`          // Unix timestamp in milliseconds
	ActiveUsers        int           `json:"activeUsers"`        // sessions active in the last 5 minutes
	PageViews          int           `json:"pageViews"`          // page views since the previous tick
	Events             int           `json:"events"`             // analytics events since the previous tick
	Revenue            float64       `json:"revenue"`            // revenue recorded in the last hour
	Conversions        int           `json:"conversions"`        // conversion events in the last hour
	BounceRate         float64       `json:"bounceRate"`         // percentage, 1-hour window
	AvgSessionDuration float64       `json:"avgSessionDuration"` // seconds, 1-hour window
	TopPages           []TopPage     `json:"topPages"`           // max 10, 1-hour window
	UserGrowth         []GrowthPoint `json:"userGrowth"`         // 24-hour lookback, 1-hour buckets
	RevenueGrowth      []GrowthPoint `json:"revenueGrowth"`      // 24-hour lookback, 1-hour buckets
}

// TopPage is one entry of the snapshot's top-pages ranking.
type TopPage struct {
	Page          string  `json:"page"`
	Views         int     `json:"views"`
	ChangePercent float64 `json:"changePercent"` // vs the previous snapshot's count for the same page
}

// GrowthPoint is one bucket of a growth series.
type GrowthPoint struct {
	TimestampMs int64   `json:"timestamp"` // bucket start, Unix milliseconds
	Value       float64 `json:"value"`
	Delta       float64 `json:"delta"` // change vs the previous bucket
}

// Metric field names usable in threshold rules.
const (
	MetricActiveUsers        = "active_users"
	MetricPageViews          = "page_views"
	MetricEvents             = "events"
	MetricRevenue            = "revenue"
	MetricConversions        = "conversions"
	MetricBounceRate         = "bounce_rate"
	MetricAvgSessionDuration = "avg_session_duration"
)

// NumericField returns the named numeric field of the snapshot.
// Unknown or non-numeric fields resolve to 0.
func (m *AggregatedMetrics) NumericField(name string) float64 {
	switch name {
	case MetricActiveUsers:
		return float64(m.ActiveUsers)
	case MetricPageViews:
		return float64(m.PageViews)
	case MetricEvents:
		return float64(m.Events)
	case MetricRevenue:
		return m.Revenue
	case MetricConversions:
		return float64(m.Conversions)
	case MetricBounceRate:
		return m.BounceRate
	case MetricAvgSessionDuration:
		return m.AvgSessionDuration
	default:
		return 0
	}
}
