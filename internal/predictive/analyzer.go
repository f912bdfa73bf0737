// Package predictive tests which leading signals actually predict revenue.
//
// The funnel impact weights assume branded search and Amazon sales lead
// store revenue. This package checks that assumption against observed data:
// daily records are bucketed into weeks, each candidate signal is correlated
// against revenue across several lags, and weight adjustments are suggested
// where the data disagrees with the current weights. Suggestions are
// advisory only; applying them is a separate, explicit promotion step.
package predictive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"marketing-signal-lab/internal/correlation"
	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// MinWeeks is the minimum number of weekly buckets for analysis.
const MinWeeks = 4

// minPartialWeekDays is how many days a trailing partial week needs before
// it counts as a bucket.
const minPartialWeekDays = 4

// DefaultAnalysisDays is the default lookback for the analysis.
const DefaultAnalysisDays = 60

// ErrInsufficientData is returned when fewer than MinWeeks buckets exist.
var ErrInsufficientData = errors.New("need at least 4 weeks of data for predictiveness analysis")

// WeekBucket is one week of aggregated daily metrics. Dollars and counts
// are summed; MER and NCAC are daily averages.
type WeekBucket struct {
	WeekStart string
	WeekEnd   string
	Days      int

	Revenue       float64
	Orders        int
	NewCustomers  int
	AdSpend       float64
	MetaSpend     float64
	AmazonSales   float64
	BrandedClicks int
	MER           float64
	NCAC          float64
}

// signalPair names one leading-signal-to-revenue correlation under test,
// tied to the funnel weight it would adjust.
type signalPair struct {
	name       string
	weightName string // empty when no weight is tied to this signal
	extract    func(WeekBucket) float64
}

var signalPairs = []signalPair{
	{"branded_search", domain.SignalBrandedSearch, func(w WeekBucket) float64 { return float64(w.BrandedClicks) }},
	{"amazon_sales", domain.SignalAmazon, func(w WeekBucket) float64 { return w.AmazonSales }},
	{"new_customers", domain.SignalNewCustomers, func(w WeekBucket) float64 { return float64(w.NewCustomers) }},
	// Spend is tested for diagnostics only; it carries no funnel weight.
	{"meta_spend", "", func(w WeekBucket) float64 { return w.MetaSpend }},
}

// PairResult is the full lag sweep for one signal pair plus its best lag.
type PairResult struct {
	Signal  string
	ByLag   []*domain.CorrelationResult
	BestLag *domain.CorrelationResult
}

// Analysis is the complete predictiveness report.
type Analysis struct {
	WeeksAnalyzed int
	PeriodDays    int
	Pairs         []PairResult
	Suggestions   []domain.WeightSuggestion
	ComputedAt    time.Time
}

// Analyzer runs the weekly-bucket correlation sweep.
type Analyzer struct {
	metrics      storage.DailyMetricsStore
	correlations storage.CorrelationStore
	weights      storage.WeightStore

	now    func() time.Time
	logger *log.Logger
}

// NewAnalyzer wires an analyzer. The clock is injectable for tests; nil
// means time.Now.
func NewAnalyzer(metrics storage.DailyMetricsStore, correlations storage.CorrelationStore, weights storage.WeightStore, now func() time.Time, logger *log.Logger) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{
		metrics:      metrics,
		correlations: correlations,
		weights:      weights,
		now:          now,
		logger:       logger,
	}
}

// WeeklyBuckets groups the last N days of daily records into rolling 7-day
// buckets starting from the first record's date. A trailing partial week is
// kept only when it has at least 4 days; shorter tails would make averages
// jumpy.
func (a *Analyzer) WeeklyBuckets(ctx context.Context, days int) ([]WeekBucket, error) {
	now := a.now()
	start := now.AddDate(0, 0, -days).Format("2006-01-02")
	end := now.Format("2006-01-02")

	records, err := a.metrics.GetByDateRange(ctx, start, end)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var buckets []WeekBucket
	var week []*domain.DailyMetricsRecord
	weekStart, err := time.Parse("2006-01-02", records[0].Date)
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", records[0].Date, err)
	}

	for _, r := range records {
		day, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", r.Date, err)
		}
		if int(day.Sub(weekStart).Hours()/24) >= 7 {
			buckets = append(buckets, aggregateWeek(week))
			week = week[:0]
			weekStart = day
		}
		week = append(week, r)
	}
	if len(week) >= minPartialWeekDays {
		buckets = append(buckets, aggregateWeek(week))
	}

	return buckets, nil
}

func aggregateWeek(records []*domain.DailyMetricsRecord) WeekBucket {
	b := WeekBucket{
		WeekStart: records[0].Date,
		WeekEnd:   records[len(records)-1].Date,
		Days:      len(records),
	}
	var merSum, ncacSum float64
	for _, r := range records {
		b.Revenue += r.Revenue
		b.Orders += r.Orders
		b.NewCustomers += r.NewCustomerOrders
		b.AdSpend += r.TotalSpend
		b.MetaSpend += r.MetaSpend
		b.AmazonSales += r.AmazonSales
		b.BrandedClicks += r.BrandedSearchClicks
		merSum += r.MER
		ncacSum += r.NCAC
	}
	b.MER = merSum / float64(b.Days)
	b.NCAC = ncacSum / float64(b.Days)
	return b
}

// Analyze sweeps every signal pair across the candidate lags and derives
// advisory weight suggestions. The lag set is interpreted in weekly-bucket
// units; lags leaving too few pairs are skipped by the engine. The sweep
// checks for cancellation between pairs so a long analysis can be
// interrupted.
func (a *Analyzer) Analyze(ctx context.Context, days int) (*Analysis, error) {
	if days <= 0 {
		days = DefaultAnalysisDays
	}

	buckets, err := a.WeeklyBuckets(ctx, days)
	if err != nil {
		return nil, err
	}
	if len(buckets) < MinWeeks {
		return nil, fmt.Errorf("%w: have %d", ErrInsufficientData, len(buckets))
	}

	revenues := make([]float64, len(buckets))
	for i, b := range buckets {
		revenues[i] = b.Revenue
	}

	analysis := &Analysis{
		WeeksAnalyzed: len(buckets),
		PeriodDays:    days,
		ComputedAt:    a.now(),
	}

	funnelWeights, err := a.weights.Get(ctx, domain.WeightSetFunnelImpact)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load funnel weights: %w", err)
		}
		funnelWeights = domain.DefaultFunnelImpactWeights()
	}

	for _, pair := range signalPairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		leading := make([]float64, len(buckets))
		for i, b := range buckets {
			leading[i] = pair.extract(b)
		}

		result := PairResult{Signal: pair.name}
		for _, lag := range correlation.DefaultLags {
			corr, err := correlation.Compute(pair.name, "revenue", leading, revenues, lag)
			if err != nil {
				if errors.Is(err, correlation.ErrInsufficientData) {
					continue
				}
				return nil, err
			}
			result.ByLag = append(result.ByLag, corr)
			if putErr := a.correlations.Put(ctx, corr); putErr != nil {
				return nil, fmt.Errorf("cache correlation %s lag %d: %w", pair.name, lag, putErr)
			}
		}

		best, err := correlation.FindBestLag(pair.name, "revenue", leading, revenues, correlation.DefaultLags)
		if err != nil {
			if errors.Is(err, correlation.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		result.BestLag = best
		analysis.Pairs = append(analysis.Pairs, result)

		if pair.weightName != "" {
			if sug := suggestWeight(pair.weightName, funnelWeights.Get(pair.weightName), best); sug != nil {
				analysis.Suggestions = append(analysis.Suggestions, *sug)
			}
		}
	}

	if a.logger != nil {
		a.logger.Printf("predictiveness analysis: %d weeks, %d pairs, %d suggestions",
			analysis.WeeksAnalyzed, len(analysis.Pairs), len(analysis.Suggestions))
	}
	return analysis, nil
}

// weightBounds caps how far a suggestion can move each funnel weight.
var weightBounds = map[string]struct{ floor, cap float64 }{
	domain.SignalBrandedSearch: {0.5, 2.5},
	domain.SignalAmazon:        {1.0, 3.0},
	domain.SignalNewCustomers:  {1.5, 3.0},
}

// suggestWeight turns an observed best-lag correlation into an advisory
// weight change. Strong positive earns +0.5, weak or negligible earns -0.5,
// negative correlation is flagged for investigation with no change, and
// moderate leaves the weight alone.
func suggestWeight(signal string, current float64, best *domain.CorrelationResult) *domain.WeightSuggestion {
	bounds := weightBounds[signal]

	s := &domain.WeightSuggestion{
		SetName:   domain.WeightSetFunnelImpact,
		Signal:    signal,
		Current:   current,
		Suggested: current,
	}

	switch {
	case best.R < 0:
		s.Reason = fmt.Sprintf("Negative correlation (%.2f) - investigate why %s moves opposite to revenue", best.R, signal)
		s.Confidence = domain.ConfidenceLow
		s.Flag = "investigate"
	case best.Strength == domain.StrengthStrong:
		s.Suggested = min(bounds.cap, current+0.5)
		s.Reason = fmt.Sprintf("Strong positive correlation (%.2f) at lag %d - %s is predictive of revenue", best.R, best.LagDays, signal)
		s.Confidence = domain.ConfidenceHigh
	case best.Strength == domain.StrengthWeak, best.Strength == domain.StrengthNegligible:
		s.Suggested = max(bounds.floor, current-0.5)
		s.Reason = fmt.Sprintf("Weak correlation (%.2f) - %s may not predict revenue", best.R, signal)
		s.Confidence = domain.ConfidenceMedium
	default:
		s.Reason = fmt.Sprintf("Moderate correlation (%.2f) - current weight appropriate", best.R)
		s.Confidence = domain.ConfidenceMedium
	}

	return s
}
