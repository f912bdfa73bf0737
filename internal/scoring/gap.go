package scoring

// TrustLevel grades how much the platform-reported ROAS can be believed.
type TrustLevel string

const (
	TrustHigh   TrustLevel = "high"
	TrustMedium TrustLevel = "medium"
	TrustLow    TrustLevel = "low"
)

// Gap is the spread between platform-reported and de-duplicated ROAS. A
// large positive gap means the platform is over-claiming credit.
type Gap struct {
	GapPercent     float64
	PlatformROAS   float64
	DedupROAS      float64
	Trust          TrustLevel
	Interpretation string
}

// AttributionGap compares platform-reported ROAS against the de-duplicated
// last-click figure. A zero de-duplicated ROAS with nonzero platform ROAS is
// reported as a 100% gap.
func AttributionGap(platformROAS, dedupROAS float64) Gap {
	var gapPct float64
	if dedupROAS == 0 {
		if platformROAS > 0 {
			gapPct = 100
		}
	} else {
		gapPct = (platformROAS - dedupROAS) / dedupROAS * 100
	}

	g := Gap{
		GapPercent:   gapPct,
		PlatformROAS: platformROAS,
		DedupROAS:    dedupROAS,
	}

	switch {
	case gapPct < 20:
		g.Trust = TrustHigh
		g.Interpretation = "Platform and de-duplicated attribution agree"
	case gapPct < 50:
		g.Trust = TrustMedium
		g.Interpretation = "Platform slightly over-claiming"
	case gapPct < 100:
		g.Trust = TrustLow
		g.Interpretation = "Platform significantly over-claiming - use de-duplicated figures"
	default:
		g.Trust = TrustLow
		g.Interpretation = "Platform massively over-claiming - investigate view-through attribution"
	}

	return g
}
