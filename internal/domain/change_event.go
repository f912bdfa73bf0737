package domain

import "time"

// ActionType classifies a logged budget/campaign change.
type ActionType string

const (
	ActionSpendIncrease   ActionType = "spend_increase"
	ActionSpendDecrease   ActionType = "spend_decrease"
	ActionCampaignPaused  ActionType = "campaign_paused"
	ActionCampaignLaunch  ActionType = "campaign_launched"
	ActionCreativeChange  ActionType = "creative_change"
	ActionTargetingChange ActionType = "targeting_change"
	ActionBudgetShift     ActionType = "budget_shift"
	ActionOther           ActionType = "other"
)

// MetricsSnapshot captures the efficiency metrics in force when a change
// or recommendation was made. Snapshots are immutable.
type MetricsSnapshot struct {
	Revenue     float64
	Spend       float64
	MER         float64
	NCAC        float64
	CAMPerOrder float64 // contribution after marketing per order
}

// ChangeEvent is an externally authored, append-only record of a marketing
// change (budget move, pause, launch, creative swap).
type ChangeEvent struct {
	ID          int64
	Timestamp   time.Time
	ActionType  ActionType
	Description string

	Channel    string // e.g. "Meta Ads"
	Campaign   string // campaign name; may be empty for channel-wide changes
	CampaignID string // preferred for matching; empty on legacy entries

	Amount         float64 // dollar change, signed
	PercentChange  float64
	OriginalBudget float64
	Notes          string

	Snapshot MetricsSnapshot
}

// ChangeDate returns the event's date in YYYY-MM-DD form.
func (e *ChangeEvent) ChangeDate() string {
	return e.Timestamp.Format("2006-01-02")
}
