package domain

// DailyMetricsRecord is one day of blended marketing performance.
// Dates are unique and append-only; records are immutable once written.
// Corresponds to daily_metrics table in ClickHouse.
type DailyMetricsRecord struct {
	Date string // YYYY-MM-DD

	// Store outcomes
	Revenue           float64
	Orders            int
	NewCustomerOrders int

	// Per-channel ad spend
	TotalSpend  float64
	MetaSpend   float64
	GoogleSpend float64
	TikTokSpend float64

	// Per-channel first-click attributed revenue
	MetaFirstClick   float64
	GoogleFirstClick float64

	// Off-site signals
	AmazonSales         float64
	BrandedSearchClicks int

	// Efficiency
	MER                        float64 // blended revenue / total spend
	NCAC                       float64 // spend / new customers
	ContributionAfterMarketing float64
}
