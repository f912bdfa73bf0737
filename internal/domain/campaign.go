package domain

// Platform identifies an ad platform.
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformGoogle Platform = "google"
	PlatformTikTok Platform = "tiktok"
)

// ChannelName returns the display channel name for a platform.
func (p Platform) ChannelName() string {
	switch p {
	case PlatformMeta:
		return "Meta Ads"
	case PlatformGoogle:
		return "Google Ads"
	case PlatformTikTok:
		return "TikTok Ads"
	default:
		return string(p)
	}
}

// CampaignRecord is a per-campaign rollup over a reporting window.
// Attribution appears three ways: platform-reported (self-interested),
// de-duplicated last-click, and de-duplicated first-click.
type CampaignRecord struct {
	CampaignID string
	Platform   Platform
	Name       string

	Spend float64

	// Platform-reported attribution
	PlatformROAS    float64
	PlatformRevenue float64
	PlatformOrders  int

	// De-duplicated last-click attribution
	LastClickROAS    float64
	LastClickRevenue float64
	LastClickOrders  int

	// De-duplicated first-click attribution
	FirstClickROAS    float64
	FirstClickRevenue float64
	FirstClickOrders  int

	// Share of attributed orders from new customers, 0..1
	NewCustomerPct float64

	// Session quality inputs
	Sessions      int
	BounceRate    float64
	AddToCartRate float64
	CheckoutRate  float64
	OrderRate     float64

	// Multi-timeframe last-click ROAS for trend detection
	ROAS7d  float64
	ROAS30d float64
}

// AdSetRecord is a child of CampaignRecord, used only for budget
// concentration detection.
type AdSetRecord struct {
	AdSetID    string
	CampaignID string
	Name       string
	Spend      float64
	ROAS       float64
	Orders     int
}
