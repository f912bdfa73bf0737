package domain

import "time"

// RecommendationStatus tracks what the operator did with a recommendation.
type RecommendationStatus string

const (
	StatusPending RecommendationStatus = "pending"
	StatusDone    RecommendationStatus = "done"
	StatusIgnored RecommendationStatus = "ignored"
	StatusPartial RecommendationStatus = "partial"
)

// ValidStatus reports whether s is one of the fixed status values.
func ValidStatus(s RecommendationStatus) bool {
	switch s {
	case StatusPending, StatusDone, StatusIgnored, StatusPartial:
		return true
	}
	return false
}

// Outcome is the measured result of an acted-upon recommendation.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomePositive Outcome = "positive"
	OutcomeNegative Outcome = "negative"
	OutcomeNeutral  Outcome = "neutral"
	OutcomeUnknown  Outcome = "unknown"
)

// Recommendation is one entry in the recommendation ledger.
// MetricsAtRecommendation is immutable once written; MetricsAfter is keyed
// by day offset and each offset is written at most once.
type Recommendation struct {
	ID        string
	CreatedAt time.Time

	Type       string // scale, cut, hold, shift, ...
	Action     string // human-readable action description
	Channel    string
	Campaign   string
	CampaignID string

	BudgetChangeAmount  float64
	BudgetChangePercent float64

	Reason      string
	Confidence  Confidence
	SignalsUsed []string

	MetricsAtRecommendation MetricsSnapshot

	Status            RecommendationStatus
	StatusUpdatedAt   time.Time // zero until first transition
	ActionTaken       string
	ReasonNotFollowed string

	MetricsAfter map[int]MetricsSnapshot // keyed by day offset (7, 14)
	Outcome      Outcome
	OutcomeNotes string

	LinkedChangeEvents []int64
}

// Clone returns a deep copy safe to mutate independently.
func (r *Recommendation) Clone() *Recommendation {
	c := *r
	if r.SignalsUsed != nil {
		c.SignalsUsed = append([]string(nil), r.SignalsUsed...)
	}
	if r.MetricsAfter != nil {
		c.MetricsAfter = make(map[int]MetricsSnapshot, len(r.MetricsAfter))
		for k, v := range r.MetricsAfter {
			c.MetricsAfter[k] = v
		}
	}
	if r.LinkedChangeEvents != nil {
		c.LinkedChangeEvents = append([]int64(nil), r.LinkedChangeEvents...)
	}
	return &c
}
