package scoring

import (
	"fmt"
	"sort"

	"marketing-signal-lab/internal/domain"
)

// BudgetConcentrationThreshold is the spend share above which a single adset
// triggers a concentration warning.
const BudgetConcentrationThreshold = 0.60

// ConcentrationWarning reports a campaign whose budget optimizer is pushing
// most spend into a single adset, limiting testing of the others.
type ConcentrationWarning struct {
	CampaignName    string
	TopAdSet        string
	TopAdSetShare   float64 // 0..1
	AdSetCount      int
	IsBestPerformer bool
	Recommendation  string
}

// DetectBudgetConcentration flags when the top adset's spend share exceeds
// the threshold. Requires at least 2 adsets; whether the concentrated adset
// is also the best performer by ROAS decides between "optimal" and
// "diversify" advice. Returns nil when no warning applies.
func DetectBudgetConcentration(adsets []*domain.AdSetRecord, campaignName string) *ConcentrationWarning {
	if len(adsets) < 2 {
		return nil
	}

	var totalSpend float64
	for _, a := range adsets {
		totalSpend += a.Spend
	}
	if totalSpend == 0 {
		return nil
	}

	bySpend := make([]*domain.AdSetRecord, len(adsets))
	copy(bySpend, adsets)
	sort.Slice(bySpend, func(i, j int) bool { return bySpend[i].Spend > bySpend[j].Spend })

	top := bySpend[0]
	topShare := top.Spend / totalSpend
	if topShare <= BudgetConcentrationThreshold {
		return nil
	}

	bestROAS := adsets[0]
	for _, a := range adsets[1:] {
		if a.ROAS > bestROAS.ROAS {
			bestROAS = a
		}
	}
	isBest := bestROAS.Name == top.Name

	advice := fmt.Sprintf("Budget optimizer concentrating %.0f%% on '%s'. ", topShare*100, top.Name)
	if isBest {
		advice += "This is the best performer, so it's optimal."
	} else {
		advice += "Consider splitting budgets to test other adsets equally."
	}

	return &ConcentrationWarning{
		CampaignName:    campaignName,
		TopAdSet:        top.Name,
		TopAdSetShare:   topShare,
		AdSetCount:      len(adsets),
		IsBestPerformer: isBest,
		Recommendation:  advice,
	}
}
