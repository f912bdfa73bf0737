package clickhouse

import (
	"context"
	"fmt"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// AdSetStore implements storage.AdSetStore using ClickHouse.
type AdSetStore struct {
	conn *Conn
}

// NewAdSetStore creates a new AdSetStore.
func NewAdSetStore(conn *Conn) *AdSetStore {
	return &AdSetStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AdSetStore = (*AdSetStore)(nil)

// InsertBulk adds multiple rollups. Fails entire batch on duplicate adset_id.
func (s *AdSetStore) InsertBulk(ctx context.Context, records []*domain.AdSetRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.AdSetID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.AdSetID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.AdSetID] = struct{}{}
	}

	for _, r := range records {
		exists, err := s.exists(ctx, r.AdSetID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO adsets (adset_id, campaign_id, name, spend, roas, orders)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		if err := batch.Append(r.AdSetID, r.CampaignID, r.Name, r.Spend, r.ROAS, int64(r.Orders)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCampaignID retrieves all adsets under a campaign, ordered by spend DESC.
func (s *AdSetStore) GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.AdSetRecord, error) {
	query := `
		SELECT adset_id, campaign_id, name, spend, roas, orders
		FROM adsets
		WHERE campaign_id = ?
		ORDER BY spend DESC, adset_id ASC
	`

	rows, err := s.conn.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query by campaign id: %w", err)
	}
	defer rows.Close()

	var records []*domain.AdSetRecord
	for rows.Next() {
		var r domain.AdSetRecord
		var orders int64

		if err := rows.Scan(&r.AdSetID, &r.CampaignID, &r.Name, &r.Spend, &r.ROAS, &orders); err != nil {
			return nil, fmt.Errorf("scan adset row: %w", err)
		}

		r.Orders = int(orders)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adset rows: %w", err)
	}

	return records, nil
}

// exists checks if a rollup with the adset id exists.
func (s *AdSetStore) exists(ctx context.Context, adsetID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM adsets WHERE adset_id = ?`, adsetID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
