package predictive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage/memory"
)

// seedCross writes numDays of daily records ending yesterday with per-day
// Meta spend, branded clicks and Google first-click revenue.
func seedCross(t *testing.T, metrics *memory.DailyMetricsStore, now time.Time, numDays int, metaSpend, branded, googleFC func(i int) float64) {
	t.Helper()
	ctx := context.Background()

	var records []*domain.DailyMetricsRecord
	for i := 0; i < numDays; i++ {
		day := now.AddDate(0, 0, -(numDays - i))
		records = append(records, &domain.DailyMetricsRecord{
			Date:                day.Format("2006-01-02"),
			Revenue:             1000,
			Orders:              40,
			TotalSpend:          300,
			MetaSpend:           metaSpend(i),
			BrandedSearchClicks: int(branded(i)),
			GoogleFirstClick:    googleFC(i),
			MER:                 3.3,
			NCAC:                20,
		})
	}
	if err := metrics.InsertBulk(ctx, records); err != nil {
		t.Fatalf("Seed metrics: %v", err)
	}
}

func TestCrossChannel_InsufficientDays(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)

	seedCross(t, metrics, now, 10,
		func(i int) float64 { return 100 },
		func(i int) float64 { return 50 },
		func(i int) float64 { return 20 })

	_, err := analyzer.CrossChannel(ctx, 30)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData with 10 days, got %v", err)
	}
}

func TestCrossChannel_StrongBrandedCoupling(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, correlations := newTestAnalyzer(now)

	// Branded search tracks Meta spend day for day; Google first-click is
	// flat, so it cannot produce a positive correlation at any lag.
	seedCross(t, metrics, now, 30,
		func(i int) float64 { return 100 + float64(i)*5 },
		func(i int) float64 { return 200 + float64(i)*10 },
		func(i int) float64 { return 80 })

	analysis, err := analyzer.CrossChannel(ctx, 30)
	if err != nil {
		t.Fatalf("CrossChannel: %v", err)
	}
	if analysis.DataPoints != 30 {
		t.Errorf("DataPoints = %d, want 30", analysis.DataPoints)
	}

	if analysis.MetaToBranded.Strength != "strong" {
		t.Errorf("Branded strength = %q, want strong", analysis.MetaToBranded.Strength)
	}
	if analysis.MetaToBranded.LagDays != 0 {
		t.Errorf("Branded best lag = %d, want 0 for a day-for-day coupling", analysis.MetaToBranded.LagDays)
	}
	if analysis.MetaToBranded.R < 0.95 {
		t.Errorf("Branded r = %f, want near 1", analysis.MetaToBranded.R)
	}

	// Zero variance in Google first-click reads as weak, not an error
	if analysis.MetaToGoogleFC.Strength != "weak" {
		t.Errorf("Google FC strength = %q, want weak", analysis.MetaToGoogleFC.Strength)
	}

	joined := strings.Join(analysis.Interpretation, " ")
	if !strings.Contains(joined, "driving brand awareness") {
		t.Errorf("Interpretation missing brand awareness note: %v", analysis.Interpretation)
	}
	// Both series rose more than 10% week over week
	if !strings.Contains(joined, "building brand") {
		t.Errorf("Interpretation missing rising-trend note: %v", analysis.Interpretation)
	}
	if !strings.Contains(analysis.Implication, "cautious about cutting Meta TOF") {
		t.Errorf("Implication = %q, want the TOF warning", analysis.Implication)
	}

	// Daily-lag results land in the correlation cache
	for _, lag := range []int{0, 3, 14} {
		if _, err := correlations.Get(ctx, "meta_spend", "branded_search", lag); err != nil {
			t.Errorf("Lag-%d branded correlation not cached: %v", lag, err)
		}
	}
}

func TestCrossChannel_DecliningTogetherWarns(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)

	// Meta spend and branded search both fall by a third week over week
	seedCross(t, metrics, now, 30,
		func(i int) float64 { return 400 - float64(i)*10 },
		func(i int) float64 { return 800 - float64(i)*20 },
		func(i int) float64 { return 80 })

	analysis, err := analyzer.CrossChannel(ctx, 30)
	if err != nil {
		t.Fatalf("CrossChannel: %v", err)
	}

	joined := strings.Join(analysis.Interpretation, " ")
	if !strings.Contains(joined, "Cutting Meta TOF may be hurting brand awareness") {
		t.Errorf("Interpretation missing declining-trend warning: %v", analysis.Interpretation)
	}
}

func TestCrossChannel_Cancellation(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	analyzer, metrics, _ := newTestAnalyzer(now)
	seedCross(t, metrics, now, 30,
		func(i int) float64 { return 100 + float64(i) },
		func(i int) float64 { return 200 + float64(i) },
		func(i int) float64 { return 80 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := analyzer.CrossChannel(ctx, 30); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
