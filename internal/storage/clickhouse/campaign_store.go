package clickhouse

import (
	"context"
	"fmt"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// CampaignStore implements storage.CampaignStore using ClickHouse.
type CampaignStore struct {
	conn *Conn
}

// NewCampaignStore creates a new CampaignStore.
func NewCampaignStore(conn *Conn) *CampaignStore {
	return &CampaignStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CampaignStore = (*CampaignStore)(nil)

const campaignColumns = `
	campaign_id, platform, name, spend,
	platform_roas, platform_revenue, platform_orders,
	last_click_roas, last_click_revenue, last_click_orders,
	first_click_roas, first_click_revenue, first_click_orders,
	new_customer_pct,
	sessions, bounce_rate, add_to_cart_rate, checkout_rate, order_rate,
	roas_7d, roas_30d
`

// InsertBulk adds multiple rollups. Fails entire batch on duplicate
// campaign_id. Duplicates are checked explicitly before the batch is sent.
func (s *CampaignStore) InsertBulk(ctx context.Context, records []*domain.CampaignRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.CampaignID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.CampaignID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.CampaignID] = struct{}{}
	}

	for _, r := range records {
		exists, err := s.exists(ctx, r.CampaignID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO campaigns (`+campaignColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.CampaignID, string(r.Platform), r.Name, r.Spend,
			r.PlatformROAS, r.PlatformRevenue, int64(r.PlatformOrders),
			r.LastClickROAS, r.LastClickRevenue, int64(r.LastClickOrders),
			r.FirstClickROAS, r.FirstClickRevenue, int64(r.FirstClickOrders),
			r.NewCustomerPct,
			int64(r.Sessions), r.BounceRate, r.AddToCartRate, r.CheckoutRate, r.OrderRate,
			r.ROAS7d, r.ROAS30d,
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

// GetByID retrieves a rollup by campaign id. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByID(ctx context.Context, campaignID string) (*domain.CampaignRecord, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE campaign_id = ? LIMIT 1`

	rows, err := s.conn.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query by campaign id: %w", err)
	}
	defer rows.Close()

	records, err := scanCampaigns(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByPlatform retrieves all rollups for a platform, ordered by spend DESC.
func (s *CampaignStore) GetByPlatform(ctx context.Context, platform domain.Platform) ([]*domain.CampaignRecord, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE platform = ?
		ORDER BY spend DESC, campaign_id ASC
	`

	rows, err := s.conn.Query(ctx, query, string(platform))
	if err != nil {
		return nil, fmt.Errorf("query by platform: %w", err)
	}
	defer rows.Close()

	return scanCampaigns(rows)
}

// exists checks if a rollup with the campaign id exists.
func (s *CampaignStore) exists(ctx context.Context, campaignID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM campaigns WHERE campaign_id = ?`, campaignID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanCampaigns scans multiple rows.
func scanCampaigns(rows chRows) ([]*domain.CampaignRecord, error) {
	var records []*domain.CampaignRecord

	for rows.Next() {
		var (
			r        domain.CampaignRecord
			platform string

			platformOrders, lastClickOrders, firstClickOrders, sessions int64
		)

		err := rows.Scan(
			&r.CampaignID, &platform, &r.Name, &r.Spend,
			&r.PlatformROAS, &r.PlatformRevenue, &platformOrders,
			&r.LastClickROAS, &r.LastClickRevenue, &lastClickOrders,
			&r.FirstClickROAS, &r.FirstClickRevenue, &firstClickOrders,
			&r.NewCustomerPct,
			&sessions, &r.BounceRate, &r.AddToCartRate, &r.CheckoutRate, &r.OrderRate,
			&r.ROAS7d, &r.ROAS30d,
		)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}

		r.Platform = domain.Platform(platform)
		r.PlatformOrders = int(platformOrders)
		r.LastClickOrders = int(lastClickOrders)
		r.FirstClickOrders = int(firstClickOrders)
		r.Sessions = int(sessions)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}

	return records, nil
}
