package predictive

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage/memory"
)

// seedWeeks writes numDays of daily records ending yesterday. Revenue and
// branded search rise week over week, Amazon stays flat, and new customers
// fall, so each signal pair lands in a different suggestion branch.
func seedWeeks(t *testing.T, metrics *memory.DailyMetricsStore, now time.Time, numDays int) {
	t.Helper()
	ctx := context.Background()

	var records []*domain.DailyMetricsRecord
	for i := 0; i < numDays; i++ {
		day := now.AddDate(0, 0, -(numDays - i))
		week := i / 7
		records = append(records, &domain.DailyMetricsRecord{
			Date:                day.Format("2006-01-02"),
			Revenue:             1000 + float64(week)*100,
			Orders:              40,
			NewCustomerOrders:   30 - week*2,
			TotalSpend:          300,
			MetaSpend:           200,
			AmazonSales:         250,
			BrandedSearchClicks: 100 + week*10,
			MER:                 3.3,
			NCAC:                20,
		})
	}
	if err := metrics.InsertBulk(ctx, records); err != nil {
		t.Fatalf("Seed metrics: %v", err)
	}
}

func newTestAnalyzer(now time.Time) (*Analyzer, *memory.DailyMetricsStore, *memory.CorrelationStore) {
	metrics := memory.NewDailyMetricsStore()
	correlations := memory.NewCorrelationStore()
	weights := memory.NewWeightStore()
	return NewAnalyzer(metrics, correlations, weights, func() time.Time { return now }, nil), metrics, correlations
}

func TestWeeklyBuckets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)

	// 30 days: 4 full weeks plus a 2-day tail that gets dropped
	seedWeeks(t, metrics, now, 30)

	buckets, err := analyzer.WeeklyBuckets(ctx, 60)
	if err != nil {
		t.Fatalf("WeeklyBuckets: %v", err)
	}
	if len(buckets) != 4 {
		t.Fatalf("Expected 4 buckets (2-day tail dropped), got %d", len(buckets))
	}

	first := buckets[0]
	if first.Days != 7 {
		t.Errorf("First bucket has %d days, want 7", first.Days)
	}
	if first.Revenue != 7000 {
		t.Errorf("First bucket revenue = %f, want 7000", first.Revenue)
	}
	if first.MER != 3.3 {
		t.Errorf("First bucket MER should average to 3.3, got %f", first.MER)
	}
	if first.BrandedClicks != 700 {
		t.Errorf("First bucket branded clicks = %d, want 700", first.BrandedClicks)
	}

	// Buckets ascend in time
	if buckets[1].Revenue <= buckets[0].Revenue {
		t.Error("Weekly revenue should rise across buckets")
	}
}

func TestWeeklyBuckets_KeepsFourDayTail(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)

	// 32 days: 4 full weeks plus a 4-day tail that is kept
	seedWeeks(t, metrics, now, 32)

	buckets, err := analyzer.WeeklyBuckets(ctx, 60)
	if err != nil {
		t.Fatalf("WeeklyBuckets: %v", err)
	}
	if len(buckets) != 5 {
		t.Fatalf("Expected 5 buckets (4-day tail kept), got %d", len(buckets))
	}
	if buckets[4].Days != 4 {
		t.Errorf("Tail bucket has %d days, want 4", buckets[4].Days)
	}
}

func TestAnalyze_InsufficientWeeks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)

	// Only 3 full weeks
	seedWeeks(t, metrics, now, 21)

	_, err := analyzer.Analyze(ctx, 60)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData with 3 weeks, got %v", err)
	}
}

func TestAnalyze_SuggestionBranches(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, correlations := newTestAnalyzer(now)

	// 8 full weeks so lag 3 still leaves 5 aligned buckets
	seedWeeks(t, metrics, now, 56)

	analysis, err := analyzer.Analyze(ctx, 60)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.WeeksAnalyzed != 8 {
		t.Errorf("WeeksAnalyzed = %d, want 8", analysis.WeeksAnalyzed)
	}

	bySignal := make(map[string]domain.WeightSuggestion)
	for _, s := range analysis.Suggestions {
		bySignal[s.Signal] = s
	}

	// Branded search rises with revenue: strong positive, weight up
	branded := bySignal[domain.SignalBrandedSearch]
	if branded.Suggested != 2.0 {
		t.Errorf("Branded suggestion = %f, want 1.5 + 0.5 = 2.0", branded.Suggested)
	}
	if branded.Confidence != domain.ConfidenceHigh {
		t.Errorf("Branded confidence = %s, want high", branded.Confidence)
	}

	// Amazon is flat: no variance, negligible, weight down
	amazon := bySignal[domain.SignalAmazon]
	if amazon.Suggested != 1.5 {
		t.Errorf("Amazon suggestion = %f, want 2.0 - 0.5 = 1.5", amazon.Suggested)
	}

	// New customers fall while revenue rises: negative, flag investigate
	nc := bySignal[domain.SignalNewCustomers]
	if nc.Flag != "investigate" {
		t.Errorf("New customers flag = %q, want investigate", nc.Flag)
	}
	if nc.Suggested != nc.Current {
		t.Error("Investigate flag must not change the weight")
	}

	// Lag sweep results land in the correlation cache
	if _, err := correlations.Get(ctx, "branded_search", "revenue", 0); err != nil {
		t.Errorf("Lag-0 branded correlation not cached: %v", err)
	}
	if _, err := correlations.Get(ctx, "branded_search", "revenue", 3); err != nil {
		t.Errorf("Lag-3 branded correlation not cached: %v", err)
	}
	// Lag 7 leaves only 1 aligned bucket and is skipped
	if _, err := correlations.Get(ctx, "branded_search", "revenue", 7); err == nil {
		t.Error("Lag-7 should have been skipped with 8 buckets")
	}
}

func TestAnalyze_Cancellation(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)
	seedWeeks(t, metrics, now, 56)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := analyzer.Analyze(ctx, 60); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
