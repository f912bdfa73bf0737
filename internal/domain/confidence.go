package domain

// Confidence is a totally ordered scale: very_low < low < medium < high.
type Confidence int

const (
	ConfidenceVeryLow Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the wire form of the confidence level.
func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryLow:
		return "very_low"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "very_low"
	}
}

// ParseConfidence maps a wire string back to a level. Unknown strings map
// to very_low so a bad value can only lower confidence, never raise it.
func ParseConfidence(s string) Confidence {
	switch s {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	case "low":
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// MinConfidence returns the lower of two levels.
func MinConfidence(a, b Confidence) Confidence {
	if a < b {
		return a
	}
	return b
}
