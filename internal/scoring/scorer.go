package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// DefaultMinSpend is the spend floor below which campaigns are excluded from
// platform views; tiny campaigns produce noise, not signal.
const DefaultMinSpend = 50.0

// CampaignView is one fully scored campaign.
type CampaignView struct {
	CampaignID string
	Name       string
	Platform   domain.Platform
	Role       domain.FunnelRole

	Spend float64

	PlatformROAS   float64
	LastClickROAS  float64
	FirstClickROAS float64
	Gap            Gap

	Trend          Trend
	SessionQuality float64

	CompositeScore   float64
	Confidence       domain.Confidence
	VolumeConfidence domain.Confidence
	SignalConf       domain.Confidence

	NewCustomerPct float64
	Orders         int
	Sessions       int

	Concentration *ConcentrationWarning
	Summary       SignalsSummary
}

// PlatformView is all scored campaigns for one platform plus rollups.
type PlatformView struct {
	Platform    domain.Platform
	ChannelName string
	MinSpend    float64

	Campaigns []*CampaignView
	Summary   PlatformSummary
	Warnings  []*ConcentrationWarning
}

// PlatformSummary is the per-platform rollup across scored campaigns.
type PlatformSummary struct {
	TotalCampaigns      int
	TotalSpend          float64
	TotalDedupRevenue   float64
	TotalPlatformRev    float64
	BlendedDedupROAS    float64
	BlendedPlatformROAS float64
	OverallGapPct       float64
	ByRole              map[domain.FunnelRole]RoleStats
	TopPerformers       int // composite >= 0.6
	Underperformers     int // composite < 0.3 with spend >= 100
	AverageScore        float64
}

// RoleStats aggregates campaigns sharing a funnel role.
type RoleStats struct {
	Count   int
	Spend   float64
	Revenue float64
}

// Scorer builds multi-signal platform views over the campaign stores.
type Scorer struct {
	campaigns storage.CampaignStore
	adsets    storage.AdSetStore
	weights   storage.WeightStore

	minSpend float64
	logger   *log.Logger
}

// NewScorer creates a scorer with the default spend floor.
func NewScorer(campaigns storage.CampaignStore, adsets storage.AdSetStore, weights storage.WeightStore, logger *log.Logger) *Scorer {
	return &Scorer{
		campaigns: campaigns,
		adsets:    adsets,
		weights:   weights,
		minSpend:  DefaultMinSpend,
		logger:    logger,
	}
}

// WithMinSpend overrides the spend floor.
func (s *Scorer) WithMinSpend(minSpend float64) *Scorer {
	s.minSpend = minSpend
	return s
}

// BuildPlatformView scores every campaign on a platform and assembles the
// rollup. Campaigns below the spend floor are skipped. The composite weight
// set is loaded once per call; a missing set falls back to the defaults.
func (s *Scorer) BuildPlatformView(ctx context.Context, platform domain.Platform) (*PlatformView, error) {
	weights, err := s.weights.Get(ctx, domain.WeightSetComposite)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load composite weights: %w", err)
		}
		weights = domain.DefaultCompositeWeights()
	}

	records, err := s.campaigns.GetByPlatform(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("load campaigns for %s: %w", platform, err)
	}

	view := &PlatformView{
		Platform:    platform,
		ChannelName: platform.ChannelName(),
		MinSpend:    s.minSpend,
	}

	for _, rec := range records {
		if rec.Spend < s.minSpend {
			continue
		}

		cv, err := s.scoreCampaign(ctx, rec, weights)
		if err != nil {
			return nil, err
		}

		view.Campaigns = append(view.Campaigns, cv)
		if cv.Concentration != nil {
			view.Warnings = append(view.Warnings, cv.Concentration)
		}
	}

	sort.Slice(view.Campaigns, func(i, j int) bool {
		if view.Campaigns[i].CompositeScore != view.Campaigns[j].CompositeScore {
			return view.Campaigns[i].CompositeScore > view.Campaigns[j].CompositeScore
		}
		return view.Campaigns[i].CampaignID < view.Campaigns[j].CampaignID
	})

	view.Summary = summarize(view.Campaigns)

	if s.logger != nil {
		s.logger.Printf("scored %d campaigns on %s (%d warnings)", len(view.Campaigns), platform, len(view.Warnings))
	}

	return view, nil
}

func (s *Scorer) scoreCampaign(ctx context.Context, rec *domain.CampaignRecord, weights *domain.WeightSet) (*CampaignView, error) {
	sessionQuality := SessionQualityScore(rec.BounceRate, rec.AddToCartRate, rec.OrderRate)
	trend := TrendFromTimeframes(rec.ROAS7d, rec.ROAS30d)

	composite := CompositeScore(
		rec.PlatformROAS, rec.LastClickROAS, rec.FirstClickROAS,
		sessionQuality, trend.Score, weights,
	)

	volumeConf := ConfidenceFromVolume(rec.LastClickOrders)
	signalConf := SignalConfidence(rec.PlatformROAS, rec.LastClickROAS, rec.FirstClickROAS)

	role := ClassifyFunnelRole(rec.Name, rec.FirstClickROAS, rec.LastClickROAS, rec.NewCustomerPct)
	gap := AttributionGap(rec.PlatformROAS, rec.LastClickROAS)

	adsets, err := s.adsets.GetByCampaignID(ctx, rec.CampaignID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load adsets for %s: %w", rec.CampaignID, err)
	}

	return &CampaignView{
		CampaignID:       rec.CampaignID,
		Name:             rec.Name,
		Platform:         rec.Platform,
		Role:             role,
		Spend:            rec.Spend,
		PlatformROAS:     rec.PlatformROAS,
		LastClickROAS:    rec.LastClickROAS,
		FirstClickROAS:   rec.FirstClickROAS,
		Gap:              gap,
		Trend:            trend,
		SessionQuality:   sessionQuality,
		CompositeScore:   composite,
		Confidence:       CombineConfidence(volumeConf, signalConf),
		VolumeConfidence: volumeConf,
		SignalConf:       signalConf,
		NewCustomerPct:   rec.NewCustomerPct,
		Orders:           rec.LastClickOrders,
		Sessions:         rec.Sessions,
		Concentration:    DetectBudgetConcentration(adsets, rec.Name),
		Summary:          BuildSignalsSummary(rec.PlatformROAS, rec.LastClickROAS, rec.FirstClickROAS, sessionQuality, role, gap, trend),
	}, nil
}

func summarize(campaigns []*CampaignView) PlatformSummary {
	summary := PlatformSummary{
		ByRole: make(map[domain.FunnelRole]RoleStats),
	}
	if len(campaigns) == 0 {
		return summary
	}

	var totalDedupRevenue, totalPlatformRevenue, scoreSum float64
	for _, c := range campaigns {
		summary.TotalSpend += c.Spend
		dedupRevenue := c.LastClickROAS * c.Spend
		platformRevenue := c.PlatformROAS * c.Spend
		totalDedupRevenue += dedupRevenue
		totalPlatformRevenue += platformRevenue
		scoreSum += c.CompositeScore

		stats := summary.ByRole[c.Role]
		stats.Count++
		stats.Spend += c.Spend
		stats.Revenue += dedupRevenue
		summary.ByRole[c.Role] = stats

		if c.CompositeScore >= 0.6 {
			summary.TopPerformers++
		}
		if c.CompositeScore < 0.3 && c.Spend >= 100 {
			summary.Underperformers++
		}
	}

	summary.TotalCampaigns = len(campaigns)
	summary.TotalDedupRevenue = totalDedupRevenue
	summary.TotalPlatformRev = totalPlatformRevenue
	summary.AverageScore = scoreSum / float64(len(campaigns))

	if summary.TotalSpend > 0 {
		summary.BlendedDedupROAS = totalDedupRevenue / summary.TotalSpend
		summary.BlendedPlatformROAS = totalPlatformRevenue / summary.TotalSpend
	}
	if totalDedupRevenue > 0 {
		summary.OverallGapPct = (totalPlatformRevenue - totalDedupRevenue) / totalDedupRevenue * 100
	}

	return summary
}
