// Package reporting assembles the full analysis output: platform scoring
// views, change impact status, predictiveness results, and ledger history.
// Sections fail independently; one missing data source degrades its section
// rather than the whole report.
package reporting

import (
	"context"
	"log"
	"time"

	"marketing-signal-lab/internal/cache"
	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/impact"
	"marketing-signal-lab/internal/ledger"
	"marketing-signal-lab/internal/predictive"
	"marketing-signal-lab/internal/scoring"
)

// SectionStatus marks whether a report section was populated.
type SectionStatus string

const (
	SectionOK     SectionStatus = "ok"
	SectionFailed SectionStatus = "failed"
	SectionEmpty  SectionStatus = "empty"
)

// Section carries the status of one report section. Reason is set when the
// section failed or came back empty.
type Section struct {
	Status SectionStatus
	Reason string
}

// Report is the assembled multi-section analysis output.
type Report struct {
	GeneratedAt time.Time
	Platforms   []domain.Platform

	PlatformViews        []*scoring.PlatformView
	PlatformViewsSection Section

	ChangeImpacts        []*impact.ChangeImpact
	ChangeImpactsSection Section

	CoolingOff        *impact.CoolingOffSet
	CoolingOffSection Section

	Predictiveness        *predictive.Analysis
	PredictivenessSection Section

	LedgerSummary        *ledger.Summary
	LedgerSummarySection Section

	FunnelHealth        *impact.HealthSnapshot
	FunnelHealthSection Section
}

// Cache TTLs per section. Scoring views move with campaign reloads; the
// heavier analyses change slowly.
const (
	platformViewTTL   = 15 * time.Minute
	changeImpactTTL   = 30 * time.Minute
	predictivenessTTL = 6 * time.Hour
)

// Builder assembles reports from the analysis components.
type Builder struct {
	scorer   *scoring.Scorer
	tracker  *impact.Tracker
	analyzer *predictive.Analyzer
	ledger   *ledger.Ledger
	cache    *cache.Cache

	now    func() time.Time
	logger *log.Logger
}

// NewBuilder wires a report builder. The clock is injectable for tests;
// nil means time.Now. The cache may be nil to disable memoization.
func NewBuilder(scorer *scoring.Scorer, tracker *impact.Tracker, analyzer *predictive.Analyzer, l *ledger.Ledger, c *cache.Cache, now func() time.Time, logger *log.Logger) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		scorer:   scorer,
		tracker:  tracker,
		analyzer: analyzer,
		ledger:   l,
		cache:    c,
		now:      now,
		logger:   logger,
	}
}

// Build assembles a report across the given platforms. Every section is
// attempted; failures are recorded per section and never abort the rest.
func (b *Builder) Build(ctx context.Context, platforms []domain.Platform) *Report {
	r := &Report{
		GeneratedAt: b.now(),
		Platforms:   platforms,
	}

	b.buildPlatformViews(ctx, r)
	b.buildChangeImpacts(ctx, r)
	b.buildCoolingOff(ctx, r)
	b.buildPredictiveness(ctx, r)
	b.buildLedgerSummary(ctx, r)
	b.buildFunnelHealth(ctx, r)

	if b.logger != nil {
		b.logger.Printf("assembled report: %d platform views, %d change impacts",
			len(r.PlatformViews), len(r.ChangeImpacts))
	}
	return r
}

func (b *Builder) buildPlatformViews(ctx context.Context, r *Report) {
	for _, platform := range r.Platforms {
		view, err := b.platformView(ctx, platform)
		if err != nil {
			r.PlatformViewsSection = Section{SectionFailed, err.Error()}
			if b.logger != nil {
				b.logger.Printf("platform view %s failed: %v", platform, err)
			}
			continue
		}
		r.PlatformViews = append(r.PlatformViews, view)
	}
	if r.PlatformViewsSection.Status == "" {
		if len(r.PlatformViews) == 0 {
			r.PlatformViewsSection = Section{SectionEmpty, "no campaigns above the spend floor"}
		} else {
			r.PlatformViewsSection = Section{Status: SectionOK}
		}
	}
}

func (b *Builder) platformView(ctx context.Context, platform domain.Platform) (*scoring.PlatformView, error) {
	if b.cache == nil {
		return b.scorer.BuildPlatformView(ctx, platform)
	}
	v, err := b.cache.GetOrCompute(ctx, "platform_view:"+string(platform), platformViewTTL, func(ctx context.Context) (any, error) {
		return b.scorer.BuildPlatformView(ctx, platform)
	})
	if err != nil {
		return nil, err
	}
	return v.(*scoring.PlatformView), nil
}

func (b *Builder) buildChangeImpacts(ctx context.Context, r *Report) {
	impacts, err := b.changeImpacts(ctx)
	if err != nil {
		r.ChangeImpactsSection = Section{SectionFailed, err.Error()}
		return
	}
	r.ChangeImpacts = impacts
	if len(impacts) == 0 {
		r.ChangeImpactsSection = Section{SectionEmpty, "no changes logged in the last 30 days"}
		return
	}
	r.ChangeImpactsSection = Section{Status: SectionOK}
}

func (b *Builder) changeImpacts(ctx context.Context) ([]*impact.ChangeImpact, error) {
	if b.cache == nil {
		return b.tracker.AllChangeImpacts(ctx, 30)
	}
	v, err := b.cache.GetOrCompute(ctx, "change_impacts:30d", changeImpactTTL, func(ctx context.Context) (any, error) {
		return b.tracker.AllChangeImpacts(ctx, 30)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*impact.ChangeImpact), nil
}

func (b *Builder) buildCoolingOff(ctx context.Context, r *Report) {
	set, err := b.tracker.CoolingOff(ctx, impact.CoolingOffDays)
	if err != nil {
		r.CoolingOffSection = Section{SectionFailed, err.Error()}
		return
	}
	r.CoolingOff = set
	if len(set.Entries) == 0 {
		r.CoolingOffSection = Section{SectionEmpty, "nothing changed recently"}
		return
	}
	r.CoolingOffSection = Section{Status: SectionOK}
}

func (b *Builder) buildPredictiveness(ctx context.Context, r *Report) {
	analysis, err := b.predictiveness(ctx)
	if err != nil {
		// Too little data is a normal state for a young dataset, not a fault.
		r.PredictivenessSection = Section{SectionEmpty, err.Error()}
		return
	}
	r.Predictiveness = analysis
	r.PredictivenessSection = Section{Status: SectionOK}
}

func (b *Builder) predictiveness(ctx context.Context) (*predictive.Analysis, error) {
	if b.cache == nil {
		return b.analyzer.Analyze(ctx, predictive.DefaultAnalysisDays)
	}
	v, err := b.cache.GetOrCompute(ctx, "predictiveness:60d", predictivenessTTL, func(ctx context.Context) (any, error) {
		return b.analyzer.Analyze(ctx, predictive.DefaultAnalysisDays)
	})
	if err != nil {
		return nil, err
	}
	return v.(*predictive.Analysis), nil
}

func (b *Builder) buildLedgerSummary(ctx context.Context, r *Report) {
	s, err := b.ledger.Summarize(ctx, 30)
	if err != nil {
		r.LedgerSummarySection = Section{SectionFailed, err.Error()}
		return
	}
	r.LedgerSummary = s
	if s.Total == 0 {
		r.LedgerSummarySection = Section{SectionEmpty, "no recommendations recorded"}
		return
	}
	r.LedgerSummarySection = Section{Status: SectionOK}
}

func (b *Builder) buildFunnelHealth(ctx context.Context, r *Report) {
	snap, err := b.tracker.Health(ctx)
	if err != nil {
		r.FunnelHealthSection = Section{SectionFailed, err.Error()}
		return
	}
	r.FunnelHealth = snap
	if snap.Current.Days == 0 {
		r.FunnelHealthSection = Section{SectionEmpty, "no daily metrics for the current week"}
		return
	}
	r.FunnelHealthSection = Section{Status: SectionOK}
}
