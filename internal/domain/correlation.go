package domain

// CorrelationStrength buckets |r| into fixed classes.
type CorrelationStrength string

const (
	StrengthStrong     CorrelationStrength = "strong"     // |r| >= 0.7
	StrengthModerate   CorrelationStrength = "moderate"   // |r| >= 0.4
	StrengthWeak       CorrelationStrength = "weak"       // |r| >= 0.2
	StrengthNegligible CorrelationStrength = "negligible" // below 0.2
)

// StrengthFor classifies a correlation coefficient.
func StrengthFor(r float64) CorrelationStrength {
	abs := r
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 0.7:
		return StrengthStrong
	case abs >= 0.4:
		return StrengthModerate
	case abs >= 0.2:
		return StrengthWeak
	default:
		return StrengthNegligible
	}
}

// CorrelationDirection is the sign of a correlation.
type CorrelationDirection string

const (
	DirectionPositive CorrelationDirection = "positive"
	DirectionNegative CorrelationDirection = "negative"
)

// TagNoVariance marks a degenerate correlation where one input had zero
// variance. The result carries r=0 and is not a fault.
const TagNoVariance = "no_variance"

// CorrelationResult is a single lagged Pearson computation.
type CorrelationResult struct {
	Leading    string
	Lagging    string
	LagDays    int
	R          float64 // in [-1, 1]
	Strength   CorrelationStrength
	Direction  CorrelationDirection
	SampleSize int
	Tag        string // TagNoVariance for degenerate inputs, otherwise empty
}
