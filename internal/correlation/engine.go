package correlation

import (
	"errors"
	"fmt"
	"math"

	"marketing-signal-lab/internal/domain"
)

// MinSamplePairs is the minimum number of aligned pairs required for a
// correlation to be computed at all.
const MinSamplePairs = 5

// DefaultLags are the candidate lead times, in days, tested when searching
// for the best-fitting lag.
var DefaultLags = []int{0, 3, 7, 14}

// ErrInsufficientData is returned when fewer than MinSamplePairs aligned
// pairs remain after applying the lag shift.
var ErrInsufficientData = errors.New("not enough aligned pairs for correlation")

// Compute calculates the Pearson correlation between a leading and a lagging
// series with the leading series shifted forward by lagDays. Element i of
// leading is paired with element i+lagDays of lagging; the series are assumed
// to be aligned daily observations.
//
// Zero variance in either input yields r=0 tagged no_variance rather than an
// error. A flat series is a real observation, not a fault.
func Compute(leadingName, laggingName string, leading, lagging []float64, lagDays int) (*domain.CorrelationResult, error) {
	if lagDays < 0 {
		return nil, fmt.Errorf("negative lag %d", lagDays)
	}

	n := len(leading)
	if len(lagging) < len(leading) {
		n = len(lagging)
	}
	n -= lagDays
	if n < MinSamplePairs {
		return nil, ErrInsufficientData
	}

	x := leading[:n]
	y := lagging[lagDays : lagDays+n]

	r, ok := pearson(x, y)

	result := &domain.CorrelationResult{
		Leading:    leadingName,
		Lagging:    laggingName,
		LagDays:    lagDays,
		R:          r,
		Strength:   domain.StrengthFor(r),
		SampleSize: n,
	}
	if !ok {
		result.Tag = domain.TagNoVariance
	}
	if r >= 0 {
		result.Direction = domain.DirectionPositive
	} else {
		result.Direction = domain.DirectionNegative
	}

	return result, nil
}

// FindBestLag computes the correlation at each candidate lag and returns the
// one with the largest |r|. Ties resolve to the smallest lag. Lags that leave
// too few pairs are skipped; if every lag is skipped, ErrInsufficientData is
// returned.
func FindBestLag(leadingName, laggingName string, leading, lagging []float64, lags []int) (*domain.CorrelationResult, error) {
	if len(lags) == 0 {
		lags = DefaultLags
	}

	var best *domain.CorrelationResult
	for _, lag := range lags {
		result, err := Compute(leadingName, laggingName, leading, lagging, lag)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		// Strictly greater keeps the smallest lag on ties, because lags
		// iterate in ascending order.
		if best == nil || math.Abs(result.R) > math.Abs(best.R) {
			best = result
		}
	}

	if best == nil {
		return nil, ErrInsufficientData
	}
	return best, nil
}

// pearson returns the correlation coefficient for two equal-length series.
// The second return is false when either series has zero variance, in which
// case r is 0.
func pearson(x, y []float64) (float64, bool) {
	n := float64(len(x))

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0, false
	}

	r := cov / math.Sqrt(varX*varY)

	// Guard against floating point drift past the valid range.
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}
