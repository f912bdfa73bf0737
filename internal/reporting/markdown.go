package reporting

import (
	"fmt"
	"strings"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/impact"
)

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Marketing Signal Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"))

	r.renderFunnelHealth(&b)
	r.renderPlatformViews(&b)
	r.renderChangeImpacts(&b)
	r.renderCoolingOff(&b)
	r.renderPredictiveness(&b)
	r.renderLedgerSummary(&b)

	return b.String()
}

func renderSectionIssue(b *strings.Builder, s Section) bool {
	switch s.Status {
	case SectionFailed:
		fmt.Fprintf(b, "*Section unavailable: %s*\n\n", s.Reason)
		return true
	case SectionEmpty:
		fmt.Fprintf(b, "*%s*\n\n", s.Reason)
		return true
	}
	return false
}

func (r *Report) renderFunnelHealth(b *strings.Builder) {
	fmt.Fprintf(b, "## Funnel Health (week over week)\n\n")
	if renderSectionIssue(b, r.FunnelHealthSection) {
		return
	}

	h := r.FunnelHealth
	fmt.Fprintf(b, "Period %s to %s: **%s** (score %.1f)\n\n", h.Period.Start, h.Period.End, verdictLabel(h.Verdict), h.Score)
	for _, s := range h.Signals {
		fmt.Fprintf(b, "- %s\n", s)
	}
	fmt.Fprintf(b, "\nRevenue $%.0f, %d orders, %d new customers, spend $%.0f, MER %.2f\n\n",
		h.Current.Revenue, h.Current.Orders, h.Current.NewCustomers, h.Current.AdSpend, h.Current.MER)
}

func (r *Report) renderPlatformViews(b *strings.Builder) {
	fmt.Fprintf(b, "## Campaign Scoring\n\n")
	if renderSectionIssue(b, r.PlatformViewsSection) {
		return
	}

	for _, view := range r.PlatformViews {
		fmt.Fprintf(b, "### %s\n\n", view.ChannelName)
		s := view.Summary
		fmt.Fprintf(b, "%d campaigns, $%.0f spend, blended de-duplicated ROAS %.2fx (platform claims %.2fx, gap %.0f%%)\n\n",
			s.TotalCampaigns, s.TotalSpend, s.BlendedDedupROAS, s.BlendedPlatformROAS, s.OverallGapPct)

		for _, c := range view.Campaigns {
			fmt.Fprintf(b, "- **%s** [%s] score %.2f (%s confidence): %s\n",
				c.Name, c.Role, c.CompositeScore, c.Confidence, c.Summary.Advice)
		}
		b.WriteString("\n")

		if len(view.Warnings) > 0 {
			fmt.Fprintf(b, "Budget concentration warnings:\n\n")
			for _, w := range view.Warnings {
				fmt.Fprintf(b, "- %s\n", w.Recommendation)
			}
			b.WriteString("\n")
		}
	}
}

func (r *Report) renderChangeImpacts(b *strings.Builder) {
	fmt.Fprintf(b, "## Change Impact Tracking\n\n")
	if renderSectionIssue(b, r.ChangeImpactsSection) {
		return
	}

	for _, ci := range r.ChangeImpacts {
		fmt.Fprintf(b, "### %s (%s, %d days ago)\n\n", ci.Event.Description, ci.Event.Channel, ci.DaysSinceChange)
		for _, w := range ci.Windows {
			if w.Status == domain.ImpactPending {
				fmt.Fprintf(b, "- %dd: pending, %d days remaining (available %s)\n", w.WindowDays, w.DaysRemaining, w.AvailableOn)
				continue
			}
			a := w.Assessment
			fmt.Fprintf(b, "- %dd: **%s** (score %.1f) - %s\n", w.WindowDays, verdictLabel(a.Verdict), a.Score, strings.Join(a.Signals, ", "))
		}
		b.WriteString("\n")
	}
}

func (r *Report) renderCoolingOff(b *strings.Builder) {
	fmt.Fprintf(b, "## Cooling Off (changed within %d days)\n\n", impact.CoolingOffDays)
	if renderSectionIssue(b, r.CoolingOffSection) {
		return
	}

	for _, e := range r.CoolingOff.Entries {
		fmt.Fprintf(b, "- %s: %s (%s)\n", e.Date, e.Description, e.Channel)
	}
	b.WriteString("\n")
}

func (r *Report) renderPredictiveness(b *strings.Builder) {
	fmt.Fprintf(b, "## Signal Predictiveness\n\n")
	if renderSectionIssue(b, r.PredictivenessSection) {
		return
	}

	a := r.Predictiveness
	fmt.Fprintf(b, "Based on %d weeks of data.\n\n", a.WeeksAnalyzed)
	for _, p := range a.Pairs {
		best := p.BestLag
		fmt.Fprintf(b, "- **%s -> revenue**: %s (%+.2f) at lag %d\n", p.Signal, best.Strength, best.R, best.LagDays)
	}
	b.WriteString("\n")

	if len(a.Suggestions) > 0 {
		fmt.Fprintf(b, "Suggested weight adjustments (advisory, not applied):\n\n")
		for _, s := range a.Suggestions {
			if s.Flag != "" {
				fmt.Fprintf(b, "- **%s**: keep at %.1fx, flagged %s - %s\n", s.Signal, s.Current, s.Flag, s.Reason)
			} else if s.Suggested != s.Current {
				fmt.Fprintf(b, "- **%s**: %.1fx -> %.1fx - %s\n", s.Signal, s.Current, s.Suggested, s.Reason)
			} else {
				fmt.Fprintf(b, "- **%s**: keep at %.1fx - %s\n", s.Signal, s.Current, s.Reason)
			}
		}
		b.WriteString("\n")
	}
}

func (r *Report) renderLedgerSummary(b *strings.Builder) {
	fmt.Fprintf(b, "## Recommendation History (30 days)\n\n")
	if renderSectionIssue(b, r.LedgerSummarySection) {
		return
	}

	s := r.LedgerSummary
	fmt.Fprintf(b, "%d recommendations: %d acted upon, %d ignored, %d pending\n\n", s.Total, s.Acted, s.Ignored, s.Pending)

	if s.Outcomes[domain.OutcomePositive] > 0 || s.Outcomes[domain.OutcomeNegative] > 0 {
		fmt.Fprintf(b, "Outcomes: %d positive, %d negative, %d neutral\n\n",
			s.Outcomes[domain.OutcomePositive], s.Outcomes[domain.OutcomeNegative], s.Outcomes[domain.OutcomeNeutral])
	}

	if len(s.Patterns) > 0 {
		fmt.Fprintf(b, "Observed patterns:\n\n")
		for _, p := range s.Patterns {
			fmt.Fprintf(b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	for _, e := range s.Examples {
		switch e.Kind {
		case "success":
			fmt.Fprintf(b, "- Worked: %s (%s) - %s\n", e.Action, e.Channel, e.MetricsChange)
		case "failure":
			fmt.Fprintf(b, "- Backfired: %s (%s) - %s\n", e.Action, e.Channel, e.MetricsChange)
		case "ignored":
			fmt.Fprintf(b, "- Ignored: %s (%s) - %s\n", e.Action, e.Channel, e.ReasonIgnored)
		}
	}
	b.WriteString("\n")
}

func verdictLabel(v domain.Verdict) string {
	return strings.ReplaceAll(string(v), "_", " ")
}
