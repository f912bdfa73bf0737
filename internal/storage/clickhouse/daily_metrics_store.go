package clickhouse

import (
	"context"
	"fmt"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// DailyMetricsStore implements storage.DailyMetricsStore using ClickHouse.
// Dates are stored as String in YYYY-MM-DD form so lexical ordering matches
// chronological ordering.
type DailyMetricsStore struct {
	conn *Conn
}

// NewDailyMetricsStore creates a new DailyMetricsStore.
func NewDailyMetricsStore(conn *Conn) *DailyMetricsStore {
	return &DailyMetricsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyMetricsStore = (*DailyMetricsStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on duplicate date.
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly
// before the batch is sent.
func (s *DailyMetricsStore) InsertBulk(ctx context.Context, records []*domain.DailyMetricsRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Date == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.Date]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.Date] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_metrics (
			date, revenue, orders, new_customer_orders,
			total_spend, meta_spend, google_spend, tiktok_spend,
			meta_first_click, google_first_click,
			amazon_sales, branded_search_clicks,
			mer, ncac, contribution_after_marketing
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.Date, r.Revenue, int64(r.Orders), int64(r.NewCustomerOrders),
			r.TotalSpend, r.MetaSpend, r.GoogleSpend, r.TikTokSpend,
			r.MetaFirstClick, r.GoogleFirstClick,
			r.AmazonSales, int64(r.BrandedSearchClicks),
			r.MER, r.NCAC, r.ContributionAfterMarketing,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDateRange retrieves records with start <= date <= end, ordered by date ASC.
func (s *DailyMetricsStore) GetByDateRange(ctx context.Context, start, end string) ([]*domain.DailyMetricsRecord, error) {
	query := `
		SELECT
			date, revenue, orders, new_customer_orders,
			total_spend, meta_spend, google_spend, tiktok_spend,
			meta_first_click, google_first_click,
			amazon_sales, branded_search_clicks,
			mer, ncac, contribution_after_marketing
		FROM daily_metrics
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanDailyMetrics(rows)
}

// LatestDate returns the most recent date present. Returns ErrNotFound when
// the table is empty.
func (s *DailyMetricsStore) LatestDate(ctx context.Context) (string, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM daily_metrics`).Scan(&count); err != nil {
		return "", fmt.Errorf("count daily metrics: %w", err)
	}
	if count == 0 {
		return "", storage.ErrNotFound
	}

	var latest string
	if err := s.conn.QueryRow(ctx, `SELECT max(date) FROM daily_metrics`).Scan(&latest); err != nil {
		return "", fmt.Errorf("query latest date: %w", err)
	}
	return latest, nil
}

// exists checks if a record for the date exists.
func (s *DailyMetricsStore) exists(ctx context.Context, date string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM daily_metrics WHERE date = ?`, date).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanDailyMetrics scans multiple rows.
func scanDailyMetrics(rows chRows) ([]*domain.DailyMetricsRecord, error) {
	var records []*domain.DailyMetricsRecord

	for rows.Next() {
		var r domain.DailyMetricsRecord
		var orders, newCustomerOrders, brandedClicks int64

		err := rows.Scan(
			&r.Date, &r.Revenue, &orders, &newCustomerOrders,
			&r.TotalSpend, &r.MetaSpend, &r.GoogleSpend, &r.TikTokSpend,
			&r.MetaFirstClick, &r.GoogleFirstClick,
			&r.AmazonSales, &brandedClicks,
			&r.MER, &r.NCAC, &r.ContributionAfterMarketing,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily metrics row: %w", err)
		}

		r.Orders = int(orders)
		r.NewCustomerOrders = int(newCustomerOrders)
		r.BrandedSearchClicks = int(brandedClicks)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metrics rows: %w", err)
	}

	return records, nil
}
