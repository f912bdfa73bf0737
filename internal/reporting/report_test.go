package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketing-signal-lab/internal/cache"
	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/impact"
	"marketing-signal-lab/internal/ledger"
	"marketing-signal-lab/internal/predictive"
	"marketing-signal-lab/internal/scoring"
	"marketing-signal-lab/internal/storage/memory"
)

type testStores struct {
	metrics     *memory.DailyMetricsStore
	campaigns   *memory.CampaignStore
	adsets      *memory.AdSetStore
	changes     *memory.ChangeEventStore
	recs        *memory.RecommendationStore
	assessments *memory.AssessmentStore
	corrs       *memory.CorrelationStore
	weights     *memory.WeightStore
}

func newTestBuilder(t *testing.T, now time.Time) (*Builder, *testStores) {
	t.Helper()
	s := &testStores{
		metrics:     memory.NewDailyMetricsStore(),
		campaigns:   memory.NewCampaignStore(),
		adsets:      memory.NewAdSetStore(),
		changes:     memory.NewChangeEventStore(),
		recs:        memory.NewRecommendationStore(),
		assessments: memory.NewAssessmentStore(),
		corrs:       memory.NewCorrelationStore(),
		weights:     memory.NewWeightStore(),
	}

	clock := func() time.Time { return now }
	scorer := scoring.NewScorer(s.campaigns, s.adsets, s.weights, nil)
	tracker := impact.NewTracker(s.metrics, s.changes, s.assessments, s.weights, clock, nil)
	analyzer := predictive.NewAnalyzer(s.metrics, s.corrs, s.weights, clock, nil)
	l := ledger.New(s.recs, clock, nil)

	return NewBuilder(scorer, tracker, analyzer, l, cache.New(clock), clock, nil), s
}

func seedReportData(t *testing.T, s *testStores, now time.Time) {
	t.Helper()
	ctx := context.Background()

	var records []*domain.DailyMetricsRecord
	for i := 60; i >= 1; i-- {
		day := now.AddDate(0, 0, -i)
		records = append(records, &domain.DailyMetricsRecord{
			Date:                day.Format("2006-01-02"),
			Revenue:             1000 + float64(60-i)*10,
			Orders:              40,
			NewCustomerOrders:   15,
			TotalSpend:          300,
			MetaSpend:           200,
			AmazonSales:         250,
			BrandedSearchClicks: 100 + (60-i),
			MER:                 3.3,
			NCAC:                20,
		})
	}
	if err := s.metrics.InsertBulk(ctx, records); err != nil {
		t.Fatalf("Seed metrics: %v", err)
	}

	err := s.campaigns.InsertBulk(ctx, []*domain.CampaignRecord{{
		CampaignID: "c1", Platform: domain.PlatformMeta, Name: "BOF Retargeting",
		Spend: 1000, PlatformROAS: 4.0, LastClickROAS: 3.2, FirstClickROAS: 1.1,
		LastClickOrders: 25, Sessions: 2000, BounceRate: 0.4, AddToCartRate: 0.1,
		OrderRate: 0.03, ROAS7d: 3.4, ROAS30d: 3.2,
	}})
	if err != nil {
		t.Fatalf("Seed campaigns: %v", err)
	}

	s.changes.Insert(ctx, &domain.ChangeEvent{
		Timestamp:   now.AddDate(0, 0, -10),
		ActionType:  domain.ActionSpendIncrease,
		Description: "Scaled retargeting +25%",
		Channel:     "Meta Ads",
		CampaignID:  "c1",
	})
}

func TestBuild_FullReport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	builder, stores := newTestBuilder(t, now)
	seedReportData(t, stores, now)

	report := builder.Build(ctx, []domain.Platform{domain.PlatformMeta})

	if report.PlatformViewsSection.Status != SectionOK {
		t.Errorf("Platform views section = %+v, want ok", report.PlatformViewsSection)
	}
	if report.ChangeImpactsSection.Status != SectionOK {
		t.Errorf("Change impacts section = %+v, want ok", report.ChangeImpactsSection)
	}
	if report.FunnelHealthSection.Status != SectionOK {
		t.Errorf("Funnel health section = %+v, want ok", report.FunnelHealthSection)
	}
	if report.PredictivenessSection.Status != SectionOK {
		t.Errorf("Predictiveness section = %+v, want ok", report.PredictivenessSection)
	}
	// No recommendations and nothing changed within 3 days: empty, not failed
	if report.LedgerSummarySection.Status != SectionEmpty {
		t.Errorf("Ledger section = %+v, want empty", report.LedgerSummarySection)
	}
	if report.CoolingOffSection.Status != SectionEmpty {
		t.Errorf("Cooling off section = %+v, want empty", report.CoolingOffSection)
	}

	if len(report.PlatformViews) != 1 || len(report.PlatformViews[0].Campaigns) != 1 {
		t.Fatal("Expected one scored Meta campaign")
	}
	if len(report.ChangeImpacts) != 1 {
		t.Fatalf("Expected one tracked change, got %d", len(report.ChangeImpacts))
	}
}

func TestBuild_EmptyStoresDegradeGracefully(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	builder, _ := newTestBuilder(t, now)

	report := builder.Build(ctx, []domain.Platform{domain.PlatformMeta})

	// Nothing hard-fails on empty stores
	for name, section := range map[string]Section{
		"platform views": report.PlatformViewsSection,
		"change impacts": report.ChangeImpactsSection,
		"cooling off":    report.CoolingOffSection,
		"predictiveness": report.PredictivenessSection,
		"ledger":         report.LedgerSummarySection,
		"funnel health":  report.FunnelHealthSection,
	} {
		if section.Status == SectionFailed {
			t.Errorf("%s section failed on empty stores: %s", name, section.Reason)
		}
		if section.Status != SectionOK && section.Reason == "" {
			t.Errorf("%s degraded section missing a reason", name)
		}
	}

	// The report still renders
	md := report.Markdown()
	if !strings.Contains(md, "# Marketing Signal Report") {
		t.Error("Markdown missing title")
	}
}

func TestMarkdown_Rendering(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	builder, stores := newTestBuilder(t, now)
	seedReportData(t, stores, now)

	md := builder.Build(ctx, []domain.Platform{domain.PlatformMeta}).Markdown()

	for _, want := range []string{
		"## Funnel Health",
		"## Campaign Scoring",
		"### Meta Ads",
		"BOF Retargeting",
		"## Change Impact Tracking",
		"Scaled retargeting +25%",
		"## Signal Predictiveness",
		"## Recommendation History",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
}

func TestBuild_CachesPlatformViews(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	builder, stores := newTestBuilder(t, now)
	seedReportData(t, stores, now)

	first := builder.Build(ctx, []domain.Platform{domain.PlatformMeta})

	// New campaigns landing after the first build are invisible until the
	// TTL lapses.
	stores.campaigns.InsertBulk(ctx, []*domain.CampaignRecord{{
		CampaignID: "c2", Platform: domain.PlatformMeta, Name: "New Prospecting",
		Spend: 500, LastClickROAS: 1.0, LastClickOrders: 5,
	}})

	second := builder.Build(ctx, []domain.Platform{domain.PlatformMeta})
	if len(second.PlatformViews[0].Campaigns) != len(first.PlatformViews[0].Campaigns) {
		t.Error("Cached platform view was recomputed inside the TTL")
	}
}
