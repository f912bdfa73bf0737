// Package scoring turns per-campaign attribution and behavioral inputs into
// composite [0,1] scores with derived confidence. No single attribution
// source tells the whole truth: platform ROAS over-credits itself, last-click
// misses awareness value, first-click misses conversion value. The composite
// blends them with session quality and trend.
package scoring

import (
	"math"

	"marketing-signal-lab/internal/domain"
)

// Scoring targets.
const (
	ROASTarget      = 2.0  // target ROAS for normalization
	ROASExcellent   = 3.5  // excellent ROAS threshold
	BounceTarget    = 0.65 // target max bounce rate
	ATCTarget       = 0.08 // target add-to-cart rate
	OrderRateTarget = 0.02 // target order rate
)

// Volume thresholds for confidence.
const (
	volumeHigh   = 20
	volumeMedium = 10
	volumeLow    = 3
)

// Normalize maps a metric to a [0,1] score relative to target. For
// higher-is-better metrics, 1.5x target caps at 1.0. For lower-is-better
// metrics, 0 scores 1.0 and 2x target scores 0. A zero target yields the
// neutral 0.5: there is nothing to judge against.
func Normalize(value, target float64, higherIsBetter bool) float64 {
	if target == 0 {
		return 0.5
	}

	ratio := value / target

	if higherIsBetter {
		return math.Min(1.0, ratio/1.5)
	}
	return math.Min(1.0, math.Max(0, 2-ratio))
}

// SessionQualityScore blends behavioral metrics into a [0,1] traffic quality
// score: bounce 0.3 (inverse), add-to-cart 0.4, order rate 0.3. Checkout
// rate is tracked on CampaignRecord but deliberately excluded here; it is
// nearly collinear with order rate and would double-count conversion intent.
func SessionQualityScore(bounceRate, atcRate, orderRate float64) float64 {
	bounceScore := Normalize(bounceRate, BounceTarget, false)
	atcScore := Normalize(atcRate, ATCTarget, true)
	orderScore := Normalize(orderRate, OrderRateTarget, true)

	return bounceScore*0.3 + atcScore*0.4 + orderScore*0.3
}

// TrendDirection classifies 7d-vs-30d movement.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
	TrendUnknown   TrendDirection = "unknown"
)

// Trend is the 7d-vs-30d ROAS movement for one campaign.
type Trend struct {
	Direction TrendDirection
	ChangePct float64
	Score     float64 // clamp((pct+30)/60, 0, 1)
	ROAS7d    float64
	ROAS30d   float64
}

// TrendFromTimeframes compares short-window ROAS to the long-window baseline.
// Direction is improving above +10%, declining below -10%, else stable. A
// missing baseline yields the neutral score 0.5.
func TrendFromTimeframes(roas7d, roas30d float64) Trend {
	if roas30d == 0 {
		return Trend{Direction: TrendUnknown, Score: 0.5, ROAS7d: roas7d, ROAS30d: roas30d}
	}

	changePct := (roas7d - roas30d) / roas30d * 100

	direction := TrendStable
	if changePct > 10 {
		direction = TrendImproving
	} else if changePct < -10 {
		direction = TrendDeclining
	}

	// Map -30%..+30% to 0..1
	score := math.Max(0, math.Min(1, (changePct+30)/60))

	return Trend{
		Direction: direction,
		ChangePct: changePct,
		Score:     score,
		ROAS7d:    roas7d,
		ROAS30d:   roas30d,
	}
}

// CompositeScore computes the weighted blend of the five component scores.
// The three ROAS inputs are normalized against ROASTarget; sessionQuality and
// trendScore are already [0,1].
func CompositeScore(platformROAS, lastClickROAS, firstClickROAS, sessionQuality, trendScore float64, weights *domain.WeightSet) float64 {
	platformScore := Normalize(platformROAS, ROASTarget, true)
	lcScore := Normalize(lastClickROAS, ROASTarget, true)
	fcScore := Normalize(firstClickROAS, ROASTarget, true)

	return lcScore*weights.Get(domain.SignalLastClick) +
		fcScore*weights.Get(domain.SignalFirstClick) +
		platformScore*weights.Get(domain.SignalPlatform) +
		sessionQuality*weights.Get(domain.SignalSessionQuality) +
		trendScore*weights.Get(domain.SignalTrend)
}

// ConfidenceFromVolume maps order volume to statistical confidence in the
// observed ROAS.
func ConfidenceFromVolume(orders int) domain.Confidence {
	switch {
	case orders >= volumeHigh:
		return domain.ConfidenceHigh
	case orders >= volumeMedium:
		return domain.ConfidenceMedium
	case orders >= volumeLow:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceVeryLow
	}
}

// SignalConfidence measures agreement between the three attribution sources.
// Low stdev across their normalized scores means the sources agree.
func SignalConfidence(platformROAS, lastClickROAS, firstClickROAS float64) domain.Confidence {
	scores := []float64{
		Normalize(platformROAS, ROASTarget, true),
		Normalize(lastClickROAS, ROASTarget, true),
		Normalize(firstClickROAS, ROASTarget, true),
	}

	sd := stdev(scores)
	switch {
	case sd < 0.15:
		return domain.ConfidenceHigh
	case sd < 0.30:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// CombineConfidence takes the lower of volume and signal confidence. A
// campaign with 2 orders is very_low no matter how well the sources agree.
func CombineConfidence(volume, signal domain.Confidence) domain.Confidence {
	return domain.MinConfidence(volume, signal)
}

// stdev is the sample standard deviation.
func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
