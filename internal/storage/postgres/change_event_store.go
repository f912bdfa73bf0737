package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// ChangeEventStore implements storage.ChangeEventStore using PostgreSQL.
type ChangeEventStore struct {
	pool *Pool
}

// NewChangeEventStore creates a new ChangeEventStore.
func NewChangeEventStore(pool *Pool) *ChangeEventStore {
	return &ChangeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChangeEventStore = (*ChangeEventStore)(nil)

const changeEventColumns = `
	id, ts, action_type, description,
	channel, campaign, campaign_id,
	amount, percent_change, original_budget, notes,
	snap_revenue, snap_spend, snap_mer, snap_ncac, snap_cam_per_order
`

// Insert adds a new event and returns its assigned id.
func (s *ChangeEventStore) Insert(ctx context.Context, e *domain.ChangeEvent) (int64, error) {
	if e == nil || e.Timestamp.IsZero() || e.ActionType == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO change_events (
			ts, action_type, description,
			channel, campaign, campaign_id,
			amount, percent_change, original_budget, notes,
			snap_revenue, snap_spend, snap_mer, snap_ncac, snap_cam_per_order
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		e.Timestamp, e.ActionType, e.Description,
		e.Channel, e.Campaign, e.CampaignID,
		e.Amount, e.PercentChange, e.OriginalBudget, e.Notes,
		e.Snapshot.Revenue, e.Snapshot.Spend, e.Snapshot.MER, e.Snapshot.NCAC, e.Snapshot.CAMPerOrder,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert change event: %w", err)
	}

	return id, nil
}

// GetByID retrieves an event by id. Returns ErrNotFound if not exists.
func (s *ChangeEventStore) GetByID(ctx context.Context, id int64) (*domain.ChangeEvent, error) {
	query := `SELECT ` + changeEventColumns + ` FROM change_events WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	e, err := scanChangeEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get change event by id: %w", err)
	}
	return e, nil
}

// GetByTimeRange retrieves events with start <= ts <= end, ordered by ts ASC.
func (s *ChangeEventStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ChangeEvent, error) {
	query := `
		SELECT ` + changeEventColumns + `
		FROM change_events
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get change events by time range: %w", err)
	}
	defer rows.Close()

	return scanChangeEvents(rows)
}

// GetRecent retrieves up to limit events with ts >= since, ordered by ts DESC.
// limit <= 0 means no limit.
func (s *ChangeEventStore) GetRecent(ctx context.Context, since time.Time, limit int) ([]*domain.ChangeEvent, error) {
	query := `
		SELECT ` + changeEventColumns + `
		FROM change_events
		WHERE ts >= $1
		ORDER BY ts DESC, id DESC
	`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get recent change events: %w", err)
	}
	defer rows.Close()

	return scanChangeEvents(rows)
}

// scanChangeEvent scans a single row into a ChangeEvent.
func scanChangeEvent(row pgx.Row) (*domain.ChangeEvent, error) {
	var e domain.ChangeEvent

	err := row.Scan(
		&e.ID, &e.Timestamp, &e.ActionType, &e.Description,
		&e.Channel, &e.Campaign, &e.CampaignID,
		&e.Amount, &e.PercentChange, &e.OriginalBudget, &e.Notes,
		&e.Snapshot.Revenue, &e.Snapshot.Spend, &e.Snapshot.MER, &e.Snapshot.NCAC, &e.Snapshot.CAMPerOrder,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// scanChangeEvents scans multiple rows into a slice of ChangeEvent.
func scanChangeEvents(rows pgx.Rows) ([]*domain.ChangeEvent, error) {
	var events []*domain.ChangeEvent

	for rows.Next() {
		var e domain.ChangeEvent

		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.ActionType, &e.Description,
			&e.Channel, &e.Campaign, &e.CampaignID,
			&e.Amount, &e.PercentChange, &e.OriginalBudget, &e.Notes,
			&e.Snapshot.Revenue, &e.Snapshot.Spend, &e.Snapshot.MER, &e.Snapshot.NCAC, &e.Snapshot.CAMPerOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("scan change event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change event rows: %w", err)
	}

	return events, nil
}
