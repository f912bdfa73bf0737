package domain

import "time"

// ImpactStatus is the computation state of one tracking window.
type ImpactStatus string

const (
	ImpactPending  ImpactStatus = "pending"
	ImpactComplete ImpactStatus = "complete"
)

// Verdict is the overall before/after judgement for one window.
type Verdict string

const (
	VerdictStrongPositive   Verdict = "strong_positive"
	VerdictPositive         Verdict = "positive"
	VerdictNeutral          Verdict = "neutral"
	VerdictSlightlyNegative Verdict = "slightly_negative"
	VerdictNegative         Verdict = "negative"
)

// ChangeDirection classifies a percent delta: up above +2%, down below -2%,
// flat inside the band.
type ChangeDirection string

const (
	DirectionUp   ChangeDirection = "up"
	DirectionDown ChangeDirection = "down"
	DirectionFlat ChangeDirection = "flat"
)

// Period is an inclusive date range.
type Period struct {
	Start string // YYYY-MM-DD
	End   string // YYYY-MM-DD
}

// PeriodMetrics aggregates daily records over a period.
type PeriodMetrics struct {
	Revenue        float64
	Orders         int
	NewCustomers   int
	AdSpend        float64
	MetaSpend      float64
	GoogleSpend    float64
	AmazonSales    float64
	MetaFirstClick float64
	CAM            float64
	BrandedClicks  int
	MER            float64 // daily average
	NCAC           float64 // daily average
	Days           int
}

// MetricDelta is the before/after movement of a single metric.
type MetricDelta struct {
	Baseline  float64
	After     float64
	Absolute  float64
	Pct       float64
	Direction ChangeDirection
}

// Impact holds per-metric deltas between a baseline and after period.
type Impact struct {
	Revenue        MetricDelta
	Orders         MetricDelta
	NewCustomers   MetricDelta
	AmazonSales    MetricDelta
	BrandedClicks  MetricDelta
	MetaFirstClick MetricDelta
	MER            MetricDelta
	NCAC           MetricDelta
}

// ImpactAssessment is the derived, cacheable result for one
// (change event, window) pair. Once Status is complete, the baseline and
// after periods are fixed and the record is immutable.
type ImpactAssessment struct {
	ChangeID   int64
	WindowDays int
	Status     ImpactStatus
	ComputedAt time.Time

	BaselinePeriod Period
	AfterPeriod    Period

	Impact  Impact
	Verdict Verdict
	Score   float64
	Reason  string
	Signals []string
}
