package metrics

import "admin-pulse/internal/domain"

// ComputeBounceRate returns the percentage of sessions with at most one
// page view. Returns 0 when there are no sessions.
// Formula: (sessions with pageViews <= 1) / (total sessions) * 100
func ComputeBounceRate(sessions []*domain.Session) float64 {
	if len(sessions) == 0 {
		return 0
	}

	bounced := 0
	for _, s := range sessions {
		if s.PageViews <= 1 {
			bounced++
		}
	}
	return float64(bounced) / float64(len(sessions)) * 100
}

// ComputeAvgSessionDuration returns the mean duration in seconds over
// sessions with a known duration. Returns 0 when no session has one.
func ComputeAvgSessionDuration(sessions []*domain.Session) float64 {
	sum := 0.0
	count := 0
	for _, s := range sessions {
		if s.DurationSeconds != nil {
			sum += *s.DurationSeconds
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// TopPagesWithChange converts grouped page counts into the snapshot's
// top-pages ranking, computing each page's change percentage against the
// previous snapshot's count for the same page. Pages with no previous
// data report 0 change.
func TopPagesWithChange(current []*domain.PageCount, previous []domain.TopPage) []domain.TopPage {
	prevViews := make(map[string]int, len(previous))
	for _, p := range previous {
		prevViews[p.Page] = p.Views
	}

	result := make([]domain.TopPage, 0, len(current))
	for _, pc := range current {
		tp := domain.TopPage{Page: pc.Page, Views: pc.Count}
		if prev, ok := prevViews[pc.Page]; ok && prev > 0 {
			tp.ChangePercent = float64(pc.Count-prev) / float64(prev) * 100
		}
		result = append(result, tp)
	}
	return result
}

// GrowthSeries converts bucket counts into a growth series where each
// point's delta is the change versus the previous bucket's value.
func GrowthSeries(buckets []*domain.BucketCount, value func(*domain.BucketCount) float64) []domain.GrowthPoint {
	result := make([]domain.GrowthPoint, 0, len(buckets))
	var prev float64
	for i, b := range buckets {
		v := value(b)
		point := domain.GrowthPoint{TimestampMs: b.BucketStartMs, Value: v}
		if i > 0 {
			point.Delta = v - prev
		}
		prev = v
		result = append(result, point)
	}
	return result
}

// CountValue extracts the row count of a bucket.
func CountValue(b *domain.BucketCount) float64 {
	return float64(b.Count)
}

// RevenueValue extracts a bucket's summed revenue in whole currency units.
func RevenueValue(b *domain.BucketCount) float64 {
	return b.Sum / 100
}
