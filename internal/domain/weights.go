package domain

import "time"

// Named weight sets.
const (
	WeightSetComposite    = "composite"
	WeightSetFunnelImpact = "funnel_impact"
)

// Composite score signal names.
const (
	SignalLastClick      = "last_click"
	SignalFirstClick     = "first_click"
	SignalPlatform       = "platform_reported"
	SignalSessionQuality = "session_quality"
	SignalTrend          = "trend"
)

// Funnel impact signal names.
const (
	SignalRevenue       = "revenue"
	SignalNewCustomers  = "new_customers"
	SignalAmazon        = "amazon_sales"
	SignalBrandedSearch = "branded_search"
	SignalMER           = "mer"
)

// WeightSet is a versioned named-signal -> weight map. It is mutated only
// through an explicit promotion step; analyzers suggest, never apply.
type WeightSet struct {
	Name      string
	Version   int
	Weights   map[string]float64
	UpdatedAt time.Time
}

// Get returns the weight for a signal, or 0 when absent.
func (ws *WeightSet) Get(signal string) float64 {
	if ws == nil || ws.Weights == nil {
		return 0
	}
	return ws.Weights[signal]
}

// Clone returns a deep copy so callers can stage edits without touching the
// live set.
func (ws *WeightSet) Clone() *WeightSet {
	if ws == nil {
		return nil
	}
	out := &WeightSet{
		Name:      ws.Name,
		Version:   ws.Version,
		Weights:   make(map[string]float64, len(ws.Weights)),
		UpdatedAt: ws.UpdatedAt,
	}
	for k, v := range ws.Weights {
		out.Weights[k] = v
	}
	return out
}

// DefaultCompositeWeights returns the default composite scoring weights.
// They sum to 1.0.
func DefaultCompositeWeights() *WeightSet {
	return &WeightSet{
		Name:    WeightSetComposite,
		Version: 1,
		Weights: map[string]float64{
			SignalLastClick:      0.30, // most de-duplicated, misses awareness
			SignalFirstClick:     0.20, // captures top-of-funnel value
			SignalPlatform:       0.15, // self-interested but has view-through
			SignalSessionQuality: 0.25, // behavioral, platform-agnostic
			SignalTrend:          0.10,
		},
	}
}

// DefaultFunnelImpactWeights returns the default before/after verdict weights.
func DefaultFunnelImpactWeights() *WeightSet {
	return &WeightSet{
		Name:    WeightSetFunnelImpact,
		Version: 1,
		Weights: map[string]float64{
			SignalRevenue:       2.5,
			SignalNewCustomers:  2.5,
			SignalAmazon:        2.0,
			SignalBrandedSearch: 1.5,
			SignalMER:           1.0,
		},
	}
}

// WeightSuggestion is an advisory weight change produced by the
// predictiveness analyzer. It is never auto-applied.
type WeightSuggestion struct {
	SetName    string
	Signal     string
	Current    float64
	Suggested  float64
	Reason     string
	Confidence Confidence
	Flag       string // "investigate" when correlation is negative
}
