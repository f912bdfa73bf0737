package scoring

import (
	"fmt"

	"marketing-signal-lab/internal/domain"
)

// SignalsSummary is the per-campaign decision-support digest: what's working,
// what isn't, and a preliminary action.
type SignalsSummary struct {
	Strengths []string
	Concerns  []string
	Signals   []string
	Advice    string
}

// BuildSignalsSummary derives the human-readable digest from the campaign's
// scored signals.
func BuildSignalsSummary(platformROAS, lastClickROAS, firstClickROAS, sessionQuality float64, role domain.FunnelRole, gap Gap, trend Trend) SignalsSummary {
	var s SignalsSummary

	switch {
	case lastClickROAS >= ROASExcellent:
		s.Strengths = append(s.Strengths, fmt.Sprintf("Strong last-click ROAS (%.1fx)", lastClickROAS))
	case lastClickROAS >= ROASTarget:
		s.Strengths = append(s.Strengths, fmt.Sprintf("Good last-click ROAS (%.1fx)", lastClickROAS))
	case lastClickROAS > 0:
		s.Concerns = append(s.Concerns, fmt.Sprintf("Low last-click ROAS (%.1fx)", lastClickROAS))
	}

	if role == domain.RoleAwareness {
		if firstClickROAS >= 1.0 {
			s.Strengths = append(s.Strengths, fmt.Sprintf("Good awareness value (FC ROAS %.1fx)", firstClickROAS))
		} else {
			s.Signals = append(s.Signals, "Awareness campaign - measure by NCAC, not direct ROAS")
		}
	}

	switch {
	case trend.Direction == TrendImproving && trend.ChangePct > 20:
		s.Strengths = append(s.Strengths, fmt.Sprintf("Strong momentum (+%.0f%% 7d vs 30d)", trend.ChangePct))
	case trend.Direction == TrendImproving:
		s.Strengths = append(s.Strengths, fmt.Sprintf("Improving trend (+%.0f%% 7d vs 30d)", trend.ChangePct))
	case trend.Direction == TrendDeclining && trend.ChangePct < -20:
		s.Concerns = append(s.Concerns, fmt.Sprintf("Sharp decline (%.0f%% 7d vs 30d)", trend.ChangePct))
	case trend.Direction == TrendDeclining:
		s.Concerns = append(s.Concerns, fmt.Sprintf("Declining trend (%.0f%% 7d vs 30d)", trend.ChangePct))
	case trend.Direction == TrendStable:
		s.Signals = append(s.Signals, "Stable performance (7d vs 30d avg)")
	}

	if gap.GapPercent > 50 {
		s.Concerns = append(s.Concerns, fmt.Sprintf("Platform over-claiming by %.0f%%", gap.GapPercent))
	}

	if sessionQuality >= 0.7 {
		s.Strengths = append(s.Strengths, "High-quality traffic")
	} else if sessionQuality < 0.4 {
		s.Concerns = append(s.Concerns, "Poor traffic quality (high bounce, low engagement)")
	}

	s.Advice = Advise(lastClickROAS, role, sessionQuality, trend)
	return s
}

// Advise applies the fixed decision table keyed by last-click ROAS bracket,
// trend, and session quality. Awareness campaigns bypass the table: direct
// ROAS undervalues them, so they are judged by traffic quality alone.
func Advise(lastClickROAS float64, role domain.FunnelRole, sessionQuality float64, trend Trend) string {
	if role == domain.RoleAwareness {
		if sessionQuality >= 0.5 {
			if trend.Direction == TrendDeclining && trend.ChangePct < -20 {
				return "Review creative - awareness campaign with declining performance"
			}
			return "Maintain - awareness campaign with decent traffic quality"
		}
		return "Review creative - awareness campaign with poor traffic quality"
	}

	switch {
	case lastClickROAS >= 3.0 && sessionQuality >= 0.5:
		if trend.Direction == TrendImproving {
			return "Scale aggressively - strong performer with positive momentum"
		}
		if trend.Direction == TrendDeclining {
			return "Maintain - strong performer but declining trend, watch closely"
		}
		return "Scale - strong performer across signals"

	case lastClickROAS >= 2.0:
		if trend.Direction == TrendImproving && trend.ChangePct > 15 {
			return "Consider scaling - meeting targets with improving trend"
		}
		if trend.Direction == TrendDeclining && trend.ChangePct < -15 {
			return "Watch closely - meeting targets but declining trend"
		}
		return "Maintain - meeting targets"

	case lastClickROAS >= 1.0:
		if trend.Direction == TrendImproving && trend.ChangePct > 20 {
			return "Maintain - below target but strong improvement trend"
		}
		if trend.Direction == TrendDeclining {
			return "Review - below target and declining, consider reducing budget"
		}
		return "Watch - below target, monitor for improvement"

	case lastClickROAS > 0:
		if trend.Direction == TrendImproving && trend.ChangePct > 30 {
			return "Watch - underperforming but strong recovery trend"
		}
		return "Review - underperforming, consider reducing budget"

	default:
		return "Cut - no attributed revenue"
	}
}
