// Package impact measures the downstream effect of logged marketing changes.
//
// A top-of-funnel campaign with low direct ROAS may still be driving branded
// search and Amazon sales. Single-platform attribution misses that, so each
// change is judged against the full funnel: revenue, new customers, Amazon,
// branded search, and blended efficiency.
//
// Windows 3d and 7d are action windows for scaling decisions; 14d and 30d
// are validation windows that confirm the overall strategy.
package impact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// TrackingWindows are the fixed lookforward windows in days.
var TrackingWindows = []int{3, 7, 14, 30}

// CoolingOffDays is the default exclusion period after a change.
const CoolingOffDays = 3

// baselineDays is the lookback before the change date used as the baseline
// for every window.
const baselineDays = 7

// WindowStatus is the tracking state of one (change, window) pair. Pending
// windows carry the countdown; complete windows carry the assessment.
type WindowStatus struct {
	WindowDays      int
	Status          domain.ImpactStatus
	DaysSinceChange int
	DaysRemaining   int    // pending only
	AvailableOn     string // pending only, YYYY-MM-DD
	Assessment      *domain.ImpactAssessment
}

// ChangeImpact is the multi-window impact view for one change event.
type ChangeImpact struct {
	Event           *domain.ChangeEvent
	ChangeDate      string
	DaysSinceChange int
	Baseline        domain.PeriodMetrics
	Windows         []WindowStatus
}

// CoolingOffEntry is one change that blocks new recommendations.
type CoolingOffEntry struct {
	ChangeID    int64
	Date        string
	Channel     string
	Campaign    string
	CampaignID  string
	Description string
}

// CoolingOffSet is everything currently inside the cooling-off period.
type CoolingOffSet struct {
	Channels  []string
	Campaigns []string
	Entries   []CoolingOffEntry
}

// AnalysisMode selects how much of the follow-up backlog to surface.
type AnalysisMode string

const (
	// ModeQuick surfaces only the 3d action window.
	ModeQuick AnalysisMode = "quick"
	// ModeFull surfaces 7d actions and 14d/30d validations as well.
	ModeFull AnalysisMode = "full"
)

// FollowupItem is one completed window awaiting a human decision.
type FollowupItem struct {
	Impact     *ChangeImpact
	WindowDays int
	Verdict    domain.Verdict
	Signals    []string
}

// PendingItem is a change still waiting on data.
type PendingItem struct {
	Impact         *ChangeImpact
	PendingWindows []int
	NextAvailable  string
}

// Followups partitions tracked changes by what can be done with them now.
type Followups struct {
	ActionReady     []FollowupItem
	ValidationReady []FollowupItem
	Pending         []PendingItem
}

// HealthSnapshot compares the current 7 days against the prior 7.
type HealthSnapshot struct {
	Period     domain.Period
	Current    domain.PeriodMetrics
	Previous   domain.PeriodMetrics
	WoWImpact  domain.Impact
	Verdict    domain.Verdict
	Score      float64
	Reason     string
	Signals    []string
	ComputedAt time.Time
}

// Tracker computes multi-window impact assessments over the change log.
// Complete assessments are cached through the assessment store and never
// recomputed; their baseline and after periods are pinned at first
// computation.
type Tracker struct {
	metrics     storage.DailyMetricsStore
	changes     storage.ChangeEventStore
	assessments storage.AssessmentStore
	weights     storage.WeightStore

	now    func() time.Time
	logger *log.Logger
}

// NewTracker wires a tracker over the given stores. The clock is injectable
// for tests; nil means time.Now.
func NewTracker(metrics storage.DailyMetricsStore, changes storage.ChangeEventStore, assessments storage.AssessmentStore, weights storage.WeightStore, now func() time.Time, logger *log.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		metrics:     metrics,
		changes:     changes,
		assessments: assessments,
		weights:     weights,
		now:         now,
		logger:      logger,
	}
}

// MetricsForPeriod aggregates daily records over an inclusive date range.
// Counts and dollars are summed; MER and NCAC are daily averages because
// re-deriving them from summed components would overweight high-spend days.
func (t *Tracker) MetricsForPeriod(ctx context.Context, start, end string) (domain.PeriodMetrics, error) {
	records, err := t.metrics.GetByDateRange(ctx, start, end)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.PeriodMetrics{}, nil
		}
		return domain.PeriodMetrics{}, fmt.Errorf("load metrics %s..%s: %w", start, end, err)
	}

	var pm domain.PeriodMetrics
	var merSum, ncacSum float64
	for _, r := range records {
		pm.Revenue += r.Revenue
		pm.Orders += r.Orders
		pm.NewCustomers += r.NewCustomerOrders
		pm.AdSpend += r.TotalSpend
		pm.MetaSpend += r.MetaSpend
		pm.GoogleSpend += r.GoogleSpend
		pm.AmazonSales += r.AmazonSales
		pm.MetaFirstClick += r.MetaFirstClick
		pm.CAM += r.ContributionAfterMarketing
		pm.BrandedClicks += r.BrandedSearchClicks
		merSum += r.MER
		ncacSum += r.NCAC
	}
	pm.Days = len(records)
	if pm.Days > 0 {
		pm.MER = merSum / float64(pm.Days)
		pm.NCAC = ncacSum / float64(pm.Days)
	}
	return pm, nil
}

// CalculateImpact derives per-metric deltas between a baseline and after
// period. A zero baseline maps to +100% when the after value is nonzero,
// otherwise 0%; the delta is never an error.
func CalculateImpact(baseline, after domain.PeriodMetrics) domain.Impact {
	return domain.Impact{
		Revenue:        metricDelta(baseline.Revenue, after.Revenue),
		Orders:         metricDelta(float64(baseline.Orders), float64(after.Orders)),
		NewCustomers:   metricDelta(float64(baseline.NewCustomers), float64(after.NewCustomers)),
		AmazonSales:    metricDelta(baseline.AmazonSales, after.AmazonSales),
		BrandedClicks:  metricDelta(float64(baseline.BrandedClicks), float64(after.BrandedClicks)),
		MetaFirstClick: metricDelta(baseline.MetaFirstClick, after.MetaFirstClick),
		MER:            metricDelta(baseline.MER, after.MER),
		NCAC:           metricDelta(baseline.NCAC, after.NCAC),
	}
}

func metricDelta(baseline, after float64) domain.MetricDelta {
	d := domain.MetricDelta{
		Baseline: baseline,
		After:    after,
		Absolute: after - baseline,
	}
	if baseline > 0 {
		d.Pct = (after - baseline) / baseline * 100
	} else if after > 0 {
		d.Pct = 100
	}
	switch {
	case d.Pct > 2:
		d.Direction = domain.DirectionUp
	case d.Pct < -2:
		d.Direction = domain.DirectionDown
	default:
		d.Direction = domain.DirectionFlat
	}
	return d
}

// Assess turns per-metric deltas into a weighted verdict. Each weighted
// signal contributes +weight when up, -weight when down, nothing when flat.
// MER is inverted nowhere: a rising MER is more revenue per dollar, which
// is an improvement.
func Assess(impact domain.Impact, weights *domain.WeightSet) (domain.Verdict, float64, string, []string) {
	if weights == nil {
		weights = domain.DefaultFunnelImpactWeights()
	}

	var score float64
	var signals []string

	score += signalScore(&signals, impact.Revenue, weights.Get(domain.SignalRevenue),
		"Revenue up %.1f%%", "Revenue down %.1f%%", "Revenue flat")
	score += signalScore(&signals, impact.NewCustomers, weights.Get(domain.SignalNewCustomers),
		"New customers up %.1f%%", "New customers down %.1f%%", "")
	score += signalScore(&signals, impact.AmazonSales, weights.Get(domain.SignalAmazon),
		"Amazon up %.1f%%", "Amazon down %.1f%%", "")
	score += signalScore(&signals, impact.BrandedClicks, weights.Get(domain.SignalBrandedSearch),
		"Branded search up %.1f%%", "Branded search down %.1f%%", "")
	score += signalScore(&signals, impact.MER, weights.Get(domain.SignalMER),
		"MER improved %.1f%%", "MER declined %.1f%%", "")

	var verdict domain.Verdict
	var reason string
	switch {
	case score >= 4:
		verdict = domain.VerdictStrongPositive
		reason = "Multiple signals confirm positive impact"
	case score >= 2:
		verdict = domain.VerdictPositive
		reason = "Overall positive funnel impact"
	case score >= 0:
		verdict = domain.VerdictNeutral
		reason = "Mixed or flat signals"
	case score >= -2:
		verdict = domain.VerdictSlightlyNegative
		reason = "Some negative signals, monitor closely"
	default:
		verdict = domain.VerdictNegative
		reason = "Multiple signals show negative impact"
	}

	return verdict, score, reason, signals
}

func signalScore(signals *[]string, d domain.MetricDelta, weight float64, upFmt, downFmt, flatMsg string) float64 {
	switch d.Direction {
	case domain.DirectionUp:
		*signals = append(*signals, fmt.Sprintf(upFmt, d.Pct))
		return weight
	case domain.DirectionDown:
		*signals = append(*signals, fmt.Sprintf(downFmt, -d.Pct))
		return -weight
	default:
		if flatMsg != "" {
			*signals = append(*signals, flatMsg)
		}
		return 0
	}
}

// ChangeStatus reports the multi-window tracking state for one change event.
// The baseline is always the 7 days immediately preceding the change date,
// regardless of window size. Windows with enough elapsed days get a full
// assessment, cached so the periods never shift after first computation;
// the rest report pending with a countdown.
func (t *Tracker) ChangeStatus(ctx context.Context, event *domain.ChangeEvent) (*ChangeImpact, error) {
	changeDate, err := time.Parse("2006-01-02", event.ChangeDate())
	if err != nil {
		return nil, fmt.Errorf("change %d: bad date %q: %w", event.ID, event.ChangeDate(), err)
	}

	now := t.now()
	daysSince := int(now.Sub(changeDate).Hours() / 24)

	baseline := domain.Period{
		Start: changeDate.AddDate(0, 0, -baselineDays).Format("2006-01-02"),
		End:   changeDate.AddDate(0, 0, -1).Format("2006-01-02"),
	}
	baselineMetrics, err := t.MetricsForPeriod(ctx, baseline.Start, baseline.End)
	if err != nil {
		return nil, err
	}

	ci := &ChangeImpact{
		Event:           event,
		ChangeDate:      event.ChangeDate(),
		DaysSinceChange: daysSince,
		Baseline:        baselineMetrics,
	}

	funnelWeights, err := t.weights.Get(ctx, domain.WeightSetFunnelImpact)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load funnel weights: %w", err)
		}
		funnelWeights = domain.DefaultFunnelImpactWeights()
	}

	for _, windowDays := range TrackingWindows {
		if daysSince < windowDays {
			ci.Windows = append(ci.Windows, WindowStatus{
				WindowDays:      windowDays,
				Status:          domain.ImpactPending,
				DaysSinceChange: daysSince,
				DaysRemaining:   windowDays - daysSince,
				AvailableOn:     changeDate.AddDate(0, 0, windowDays).Format("2006-01-02"),
			})
			continue
		}

		assessment, err := t.windowAssessment(ctx, event, changeDate, windowDays, baseline, baselineMetrics, funnelWeights)
		if err != nil {
			return nil, err
		}
		ci.Windows = append(ci.Windows, WindowStatus{
			WindowDays:      windowDays,
			Status:          domain.ImpactComplete,
			DaysSinceChange: daysSince,
			Assessment:      assessment,
		})
	}

	return ci, nil
}

func (t *Tracker) windowAssessment(ctx context.Context, event *domain.ChangeEvent, changeDate time.Time, windowDays int, baseline domain.Period, baselineMetrics domain.PeriodMetrics, weights *domain.WeightSet) (*domain.ImpactAssessment, error) {
	cached, err := t.assessments.Get(ctx, event.ID, windowDays)
	if err == nil && cached.Status == domain.ImpactComplete {
		return cached, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load assessment %d/%dd: %w", event.ID, windowDays, err)
	}

	after := domain.Period{
		Start: changeDate.Format("2006-01-02"),
		End:   changeDate.AddDate(0, 0, windowDays-1).Format("2006-01-02"),
	}
	afterMetrics, err := t.MetricsForPeriod(ctx, after.Start, after.End)
	if err != nil {
		return nil, err
	}

	impact := CalculateImpact(baselineMetrics, afterMetrics)
	verdict, score, reason, signals := Assess(impact, weights)

	assessment := &domain.ImpactAssessment{
		ChangeID:       event.ID,
		WindowDays:     windowDays,
		Status:         domain.ImpactComplete,
		ComputedAt:     t.now(),
		BaselinePeriod: baseline,
		AfterPeriod:    after,
		Impact:         impact,
		Verdict:        verdict,
		Score:          score,
		Reason:         reason,
		Signals:        signals,
	}
	if err := t.assessments.Put(ctx, assessment); err != nil {
		return nil, fmt.Errorf("cache assessment %d/%dd: %w", event.ID, windowDays, err)
	}

	if t.logger != nil {
		t.logger.Printf("assessed change %d window %dd: %s (score %.1f)", event.ID, windowDays, verdict, score)
	}
	return assessment, nil
}

// AllChangeImpacts returns impact status for every change in the last N days,
// most recent first. One bad entry does not abort the rest.
func (t *Tracker) AllChangeImpacts(ctx context.Context, days int) ([]*ChangeImpact, error) {
	since := t.now().AddDate(0, 0, -days)
	events, err := t.changes.GetRecent(ctx, since, 50)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load recent changes: %w", err)
	}

	var impacts []*ChangeImpact
	for _, event := range events {
		ci, err := t.ChangeStatus(ctx, event)
		if err != nil {
			if t.logger != nil {
				t.logger.Printf("skipping change %d: %v", event.ID, err)
			}
			continue
		}
		impacts = append(impacts, ci)
	}

	sort.Slice(impacts, func(i, j int) bool {
		if impacts[i].ChangeDate != impacts[j].ChangeDate {
			return impacts[i].ChangeDate > impacts[j].ChangeDate
		}
		return impacts[i].Event.ID > impacts[j].Event.ID
	})
	return impacts, nil
}

// CoolingOff returns the channels and campaigns touched by a change within
// the last N days. These should not receive new recommendations yet.
func (t *Tracker) CoolingOff(ctx context.Context, days int) (*CoolingOffSet, error) {
	since := t.now().AddDate(0, 0, -days)
	events, err := t.changes.GetRecent(ctx, since, 100)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &CoolingOffSet{}, nil
		}
		return nil, fmt.Errorf("load cooling-off changes: %w", err)
	}

	channels := make(map[string]struct{})
	campaigns := make(map[string]struct{})
	set := &CoolingOffSet{}

	for _, e := range events {
		if e.Channel != "" {
			channels[normalizeChannel(e.Channel)] = struct{}{}
		}
		if e.CampaignID != "" {
			campaigns[e.CampaignID] = struct{}{}
		} else if e.Campaign != "" {
			// Legacy entries carry only a free-text name.
			campaigns[normalizeName(e.Campaign)] = struct{}{}
		}
		set.Entries = append(set.Entries, CoolingOffEntry{
			ChangeID:    e.ID,
			Date:        e.ChangeDate(),
			Channel:     e.Channel,
			Campaign:    e.Campaign,
			CampaignID:  e.CampaignID,
			Description: e.Description,
		})
	}

	set.Channels = sortedKeys(channels)
	set.Campaigns = sortedKeys(campaigns)
	return set, nil
}

// Blocks reports whether a campaign is inside the cooling-off set. Exact id
// matching is preferred; the normalized-name fallback exists only for legacy
// entries logged before campaign ids were recorded.
func (s *CoolingOffSet) Blocks(campaignID, campaignName string) bool {
	if campaignID != "" {
		for _, c := range s.Campaigns {
			if c == campaignID {
				return true
			}
		}
	}
	if campaignName != "" {
		norm := normalizeName(campaignName)
		for _, c := range s.Campaigns {
			if c == norm {
				return true
			}
		}
	}
	return false
}

func normalizeChannel(channel string) string {
	lower := strings.ToLower(channel)
	switch {
	case strings.Contains(lower, "meta"), strings.Contains(lower, "facebook"):
		return "Meta"
	case strings.Contains(lower, "google"):
		return "Google"
	case strings.Contains(lower, "tiktok"):
		return "TikTok"
	default:
		return channel
	}
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NeedsFollowup partitions the last 30 days of tracked changes by what can
// be acted on now. Quick mode surfaces only the 3d action window; full mode
// adds 7d actions and 14d/30d validations.
func (t *Tracker) NeedsFollowup(ctx context.Context, mode AnalysisMode) (*Followups, error) {
	impacts, err := t.AllChangeImpacts(ctx, 30)
	if err != nil {
		return nil, err
	}

	f := &Followups{}
	for _, ci := range impacts {
		var pending []int
		nextAvailable := ""

		for _, w := range ci.Windows {
			if w.Status == domain.ImpactPending {
				pending = append(pending, w.WindowDays)
				if nextAvailable == "" || w.AvailableOn < nextAvailable {
					nextAvailable = w.AvailableOn
				}
				continue
			}

			item := FollowupItem{
				Impact:     ci,
				WindowDays: w.WindowDays,
				Verdict:    w.Assessment.Verdict,
				Signals:    w.Assessment.Signals,
			}
			switch w.WindowDays {
			case 3:
				f.ActionReady = append(f.ActionReady, item)
			case 7:
				if mode == ModeFull {
					f.ActionReady = append(f.ActionReady, item)
				}
			default:
				if mode == ModeFull {
					f.ValidationReady = append(f.ValidationReady, item)
				}
			}
		}

		if len(pending) > 0 {
			f.Pending = append(f.Pending, PendingItem{
				Impact:         ci,
				PendingWindows: pending,
				NextAvailable:  nextAvailable,
			})
		}
	}
	return f, nil
}

// Health compares the trailing 7 days against the 7 before them. The current
// period ends yesterday so partial-day data never skews the comparison.
func (t *Tracker) Health(ctx context.Context) (*HealthSnapshot, error) {
	now := t.now()
	currentStart := now.AddDate(0, 0, -7).Format("2006-01-02")
	currentEnd := now.AddDate(0, 0, -1).Format("2006-01-02")
	prevStart := now.AddDate(0, 0, -14).Format("2006-01-02")
	prevEnd := now.AddDate(0, 0, -8).Format("2006-01-02")

	current, err := t.MetricsForPeriod(ctx, currentStart, currentEnd)
	if err != nil {
		return nil, err
	}
	previous, err := t.MetricsForPeriod(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	funnelWeights, err := t.weights.Get(ctx, domain.WeightSetFunnelImpact)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load funnel weights: %w", err)
		}
		funnelWeights = domain.DefaultFunnelImpactWeights()
	}

	wow := CalculateImpact(previous, current)
	verdict, score, reason, signals := Assess(wow, funnelWeights)

	return &HealthSnapshot{
		Period:     domain.Period{Start: currentStart, End: currentEnd},
		Current:    current,
		Previous:   previous,
		WoWImpact:  wow,
		Verdict:    verdict,
		Score:      score,
		Reason:     reason,
		Signals:    signals,
		ComputedAt: now,
	}, nil
}
