package predictive

import (
	"context"
	"errors"
	"fmt"

	"marketing-signal-lab/internal/correlation"
	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// MinCrossChannelDays is the minimum daily history for a cross-channel run.
const MinCrossChannelDays = 14

// minCrossChannelPairs is the minimum aligned daily pairs per lag. Stricter
// than the engine floor because daily series are noisier than weekly ones.
const minCrossChannelPairs = 7

// DefaultCrossChannelDays is the default lookback for the cross-channel
// analysis.
const DefaultCrossChannelDays = 30

// Series names under which cross-channel results are cached. Daily lags,
// unlike the weekly-bucket lags in Analyze.
const (
	seriesMetaSpend        = "meta_spend"
	seriesBrandedSearch    = "branded_search"
	seriesGoogleFirstClick = "google_first_click"
)

// CrossLagSummary is the best observed lag for one channel pair. Strength
// here uses the coarser 0.6/0.3 scale: cross-channel effects below 0.3 are
// treated as noise rather than graded further.
type CrossLagSummary struct {
	R        float64
	LagDays  int
	Strength string // "strong", "moderate" or "weak"
}

// CrossChannelAnalysis answers whether Meta spend is creating demand that
// Google harvests: daily Meta spend correlated against branded search clicks
// and Google first-click revenue across the candidate lags.
type CrossChannelAnalysis struct {
	PeriodDays int
	DataPoints int

	Results []*domain.CorrelationResult

	MetaToBranded  CrossLagSummary
	MetaToGoogleFC CrossLagSummary

	Interpretation []string
	Implication    string
}

// CrossChannel runs the daily lagged correlation sweep between Meta spend
// and the Google-side series. Results land in the correlation cache under
// daily-lag keys.
func (a *Analyzer) CrossChannel(ctx context.Context, days int) (*CrossChannelAnalysis, error) {
	if days <= 0 {
		days = DefaultCrossChannelDays
	}

	now := a.now()
	start := now.AddDate(0, 0, -days).Format("2006-01-02")
	end := now.Format("2006-01-02")

	records, err := a.metrics.GetByDateRange(ctx, start, end)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}
	if len(records) < MinCrossChannelDays {
		return nil, fmt.Errorf("%w: need %d days, have %d", ErrInsufficientData, MinCrossChannelDays, len(records))
	}

	metaSpend := make([]float64, len(records))
	branded := make([]float64, len(records))
	googleFC := make([]float64, len(records))
	for i, r := range records {
		metaSpend[i] = r.MetaSpend
		branded[i] = float64(r.BrandedSearchClicks)
		googleFC[i] = r.GoogleFirstClick
	}

	analysis := &CrossChannelAnalysis{
		PeriodDays: days,
		DataPoints: len(records),
	}

	brandedBest, err := a.sweepDaily(ctx, analysis, seriesBrandedSearch, metaSpend, branded)
	if err != nil {
		return nil, err
	}
	googleBest, err := a.sweepDaily(ctx, analysis, seriesGoogleFirstClick, metaSpend, googleFC)
	if err != nil {
		return nil, err
	}
	analysis.MetaToBranded = summarizeCrossLag(brandedBest)
	analysis.MetaToGoogleFC = summarizeCrossLag(googleBest)

	analysis.Interpretation = interpretCrossChannel(analysis.MetaToBranded, analysis.MetaToGoogleFC)
	analysis.Interpretation = append(analysis.Interpretation, crossChannelTrends(records)...)
	analysis.Implication = crossChannelImplication(analysis.MetaToBranded.R, analysis.MetaToGoogleFC.R)

	if a.logger != nil {
		a.logger.Printf("cross-channel analysis: %d days, branded r=%.2f lag %d, google fc r=%.2f lag %d",
			analysis.DataPoints, analysis.MetaToBranded.R, analysis.MetaToBranded.LagDays,
			analysis.MetaToGoogleFC.R, analysis.MetaToGoogleFC.LagDays)
	}
	return analysis, nil
}

// sweepDaily computes Meta spend against one lagging series at every
// candidate lag, caches the results, and returns the lag with the highest
// positive correlation. Negative correlations never win the best slot; a
// lag that suppresses the lagging series is not a harvesting effect.
func (a *Analyzer) sweepDaily(ctx context.Context, analysis *CrossChannelAnalysis, laggingName string, leading, lagging []float64) (*domain.CorrelationResult, error) {
	var best *domain.CorrelationResult
	for _, lag := range correlation.DefaultLags {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(leading)-lag < minCrossChannelPairs {
			continue
		}

		result, err := correlation.Compute(seriesMetaSpend, laggingName, leading, lagging, lag)
		if err != nil {
			if errors.Is(err, correlation.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		analysis.Results = append(analysis.Results, result)
		if err := a.correlations.Put(ctx, result); err != nil {
			return nil, fmt.Errorf("cache correlation %s lag %d: %w", laggingName, lag, err)
		}

		if result.R > 0 && (best == nil || result.R > best.R) {
			best = result
		}
	}
	return best, nil
}

// summarizeCrossLag reduces a best-lag result to the summary shape. A nil
// best (no positive correlation at any lag) reads as weak at lag 0.
func summarizeCrossLag(best *domain.CorrelationResult) CrossLagSummary {
	if best == nil {
		return CrossLagSummary{Strength: "weak"}
	}
	s := CrossLagSummary{R: best.R, LagDays: best.LagDays}
	switch {
	case best.R > 0.6:
		s.Strength = "strong"
	case best.R > 0.3:
		s.Strength = "moderate"
	default:
		s.Strength = "weak"
	}
	return s
}

func interpretCrossChannel(branded, googleFC CrossLagSummary) []string {
	var out []string
	switch {
	case branded.R > 0.6:
		out = append(out, fmt.Sprintf(
			"Strong correlation (%.2f) between Meta spend and branded search with %d-day lag. Meta is likely driving brand awareness.",
			branded.R, branded.LagDays))
	case branded.R > 0.3:
		out = append(out, fmt.Sprintf(
			"Moderate correlation (%.2f) between Meta spend and branded search.", branded.R))
	}
	if googleFC.R > 0.6 {
		out = append(out, fmt.Sprintf(
			"Strong correlation (%.2f) between Meta spend and Google first-click revenue with %d-day lag. Meta may be creating demand that Google captures.",
			googleFC.R, googleFC.LagDays))
	}
	return out
}

// crossChannelTrends compares the trailing week against the one before on
// Meta spend and branded search, and calls out when they move together.
func crossChannelTrends(records []*domain.DailyMetricsRecord) []string {
	if len(records) < 14 {
		return nil
	}
	current := records[len(records)-7:]
	previous := records[len(records)-14 : len(records)-7]

	var curMeta, prevMeta, curBranded, prevBranded float64
	for _, r := range current {
		curMeta += r.MetaSpend
		curBranded += float64(r.BrandedSearchClicks)
	}
	for _, r := range previous {
		prevMeta += r.MetaSpend
		prevBranded += float64(r.BrandedSearchClicks)
	}

	var metaTrend, brandedTrend float64
	if prevMeta > 0 {
		metaTrend = (curMeta - prevMeta) / prevMeta * 100
	}
	if prevBranded > 0 {
		brandedTrend = (curBranded - prevBranded) / prevBranded * 100
	}

	switch {
	case metaTrend < -10 && brandedTrend < -10:
		return []string{fmt.Sprintf(
			"Warning: Meta spend down %.0f%% and branded search down %.0f%%. Cutting Meta TOF may be hurting brand awareness.",
			metaTrend, brandedTrend)}
	case metaTrend > 10 && brandedTrend > 10:
		return []string{fmt.Sprintf(
			"Meta spend up %.0f%% and branded search up %.0f%%. Investment in Meta appears to be building brand.",
			metaTrend, brandedTrend)}
	}
	return nil
}

func crossChannelImplication(brandedR, googleFCR float64) string {
	switch {
	case brandedR > 0.5 || googleFCR > 0.5:
		return "Meta TOF spend appears to drive downstream conversions through Google. Be cautious about cutting Meta TOF based solely on direct ROAS - it may be feeding your Google branded/shopping performance."
	case brandedR > 0.3 || googleFCR > 0.3:
		return "There is moderate correlation between Meta spend and Google performance. Consider running a holdout test to validate causation before major budget shifts."
	default:
		return "Weak correlation between Meta and Google channels. They may be operating more independently - optimize each on its own merits."
	}
}
