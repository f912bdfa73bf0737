package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// RecommendationStore implements storage.RecommendationStore using PostgreSQL.
// Variable-shape fields (signals, per-offset after metrics, linked events)
// are stored as JSONB.
type RecommendationStore struct {
	pool *Pool
}

// NewRecommendationStore creates a new RecommendationStore.
func NewRecommendationStore(pool *Pool) *RecommendationStore {
	return &RecommendationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecommendationStore = (*RecommendationStore)(nil)

const recommendationColumns = `
	id, created_at, rec_type, action, channel, campaign, campaign_id,
	budget_change_amount, budget_change_percent,
	reason, confidence, signals_used,
	metrics_at_revenue, metrics_at_spend, metrics_at_mer, metrics_at_ncac, metrics_at_cam_per_order,
	status, status_updated_at, action_taken, reason_not_followed,
	metrics_after, outcome, outcome_notes, linked_change_events
`

// Insert adds a new recommendation. Returns ErrDuplicateKey if the id exists.
func (s *RecommendationStore) Insert(ctx context.Context, r *domain.Recommendation) error {
	if r == nil || r.ID == "" || r.CreatedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	signalsJSON, afterJSON, linkedJSON, err := marshalRecommendationJSON(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO recommendations (
			id, created_at, rec_type, action, channel, campaign, campaign_id,
			budget_change_amount, budget_change_percent,
			reason, confidence, signals_used,
			metrics_at_revenue, metrics_at_spend, metrics_at_mer, metrics_at_ncac, metrics_at_cam_per_order,
			status, status_updated_at, action_taken, reason_not_followed,
			metrics_after, outcome, outcome_notes, linked_change_events
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9,
			$10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.CreatedAt, r.Type, r.Action, r.Channel, r.Campaign, r.CampaignID,
		r.BudgetChangeAmount, r.BudgetChangePercent,
		r.Reason, r.Confidence.String(), signalsJSON,
		r.MetricsAtRecommendation.Revenue, r.MetricsAtRecommendation.Spend,
		r.MetricsAtRecommendation.MER, r.MetricsAtRecommendation.NCAC, r.MetricsAtRecommendation.CAMPerOrder,
		r.Status, nullableTime(r.StatusUpdatedAt), r.ActionTaken, r.ReasonNotFollowed,
		afterJSON, r.Outcome, r.OutcomeNotes, linkedJSON,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// GetByID retrieves a recommendation by id. Returns ErrNotFound if not exists.
func (s *RecommendationStore) GetByID(ctx context.Context, id string) (*domain.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	r, err := scanRecommendation(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get recommendation by id: %w", err)
	}
	return r, nil
}

// Update replaces an existing recommendation. Returns ErrNotFound if the id
// does not exist.
func (s *RecommendationStore) Update(ctx context.Context, r *domain.Recommendation) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	signalsJSON, afterJSON, linkedJSON, err := marshalRecommendationJSON(r)
	if err != nil {
		return err
	}

	query := `
		UPDATE recommendations SET
			rec_type = $2, action = $3, channel = $4, campaign = $5, campaign_id = $6,
			budget_change_amount = $7, budget_change_percent = $8,
			reason = $9, confidence = $10, signals_used = $11,
			status = $12, status_updated_at = $13, action_taken = $14, reason_not_followed = $15,
			metrics_after = $16, outcome = $17, outcome_notes = $18, linked_change_events = $19
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.ID,
		r.Type, r.Action, r.Channel, r.Campaign, r.CampaignID,
		r.BudgetChangeAmount, r.BudgetChangePercent,
		r.Reason, r.Confidence.String(), signalsJSON,
		r.Status, nullableTime(r.StatusUpdatedAt), r.ActionTaken, r.ReasonNotFollowed,
		afterJSON, r.Outcome, r.OutcomeNotes, linkedJSON,
	)
	if err != nil {
		return fmt.Errorf("update recommendation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetSince retrieves up to limit recommendations created at or after since,
// ordered by created_at DESC. limit <= 0 means no limit.
func (s *RecommendationStore) GetSince(ctx context.Context, since time.Time, limit int) ([]*domain.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get recommendations since: %w", err)
	}
	defer rows.Close()

	return scanRecommendations(rows)
}

// GetByStatus retrieves all recommendations in any of the given statuses,
// ordered by created_at DESC.
func (s *RecommendationStore) GetByStatus(ctx context.Context, statuses ...domain.RecommendationStatus) ([]*domain.Recommendation, error) {
	vals := make([]string, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}

	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE status = ANY($1)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, vals)
	if err != nil {
		return nil, fmt.Errorf("get recommendations by status: %w", err)
	}
	defer rows.Close()

	return scanRecommendations(rows)
}

func marshalRecommendationJSON(r *domain.Recommendation) (signals, after, linked []byte, err error) {
	signals, err = json.Marshal(r.SignalsUsed)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal signals_used: %w", err)
	}
	after, err = json.Marshal(r.MetricsAfter)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metrics_after: %w", err)
	}
	linked, err = json.Marshal(r.LinkedChangeEvents)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal linked_change_events: %w", err)
	}
	return signals, after, linked, nil
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// scanRecommendation scans a single row into a Recommendation.
func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var (
		r           domain.Recommendation
		confidence  string
		updatedAt   *time.Time
		signalsJSON []byte
		afterJSON   []byte
		linkedJSON  []byte
	)

	err := row.Scan(
		&r.ID, &r.CreatedAt, &r.Type, &r.Action, &r.Channel, &r.Campaign, &r.CampaignID,
		&r.BudgetChangeAmount, &r.BudgetChangePercent,
		&r.Reason, &confidence, &signalsJSON,
		&r.MetricsAtRecommendation.Revenue, &r.MetricsAtRecommendation.Spend,
		&r.MetricsAtRecommendation.MER, &r.MetricsAtRecommendation.NCAC, &r.MetricsAtRecommendation.CAMPerOrder,
		&r.Status, &updatedAt, &r.ActionTaken, &r.ReasonNotFollowed,
		&afterJSON, &r.Outcome, &r.OutcomeNotes, &linkedJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalRecommendationJSON(&r, confidence, updatedAt, signalsJSON, afterJSON, linkedJSON); err != nil {
		return nil, err
	}
	return &r, nil
}

// scanRecommendations scans multiple rows into a slice of Recommendation.
func scanRecommendations(rows pgx.Rows) ([]*domain.Recommendation, error) {
	var recs []*domain.Recommendation

	for rows.Next() {
		var (
			r           domain.Recommendation
			confidence  string
			updatedAt   *time.Time
			signalsJSON []byte
			afterJSON   []byte
			linkedJSON  []byte
		)

		err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.Type, &r.Action, &r.Channel, &r.Campaign, &r.CampaignID,
			&r.BudgetChangeAmount, &r.BudgetChangePercent,
			&r.Reason, &confidence, &signalsJSON,
			&r.MetricsAtRecommendation.Revenue, &r.MetricsAtRecommendation.Spend,
			&r.MetricsAtRecommendation.MER, &r.MetricsAtRecommendation.NCAC, &r.MetricsAtRecommendation.CAMPerOrder,
			&r.Status, &updatedAt, &r.ActionTaken, &r.ReasonNotFollowed,
			&afterJSON, &r.Outcome, &r.OutcomeNotes, &linkedJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}

		if err := unmarshalRecommendationJSON(&r, confidence, updatedAt, signalsJSON, afterJSON, linkedJSON); err != nil {
			return nil, err
		}
		recs = append(recs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendation rows: %w", err)
	}

	return recs, nil
}

func unmarshalRecommendationJSON(r *domain.Recommendation, confidence string, updatedAt *time.Time, signalsJSON, afterJSON, linkedJSON []byte) error {
	r.Confidence = domain.ParseConfidence(confidence)
	if updatedAt != nil {
		r.StatusUpdatedAt = *updatedAt
	}
	if err := json.Unmarshal(signalsJSON, &r.SignalsUsed); err != nil {
		return fmt.Errorf("unmarshal signals_used: %w", err)
	}
	if err := json.Unmarshal(afterJSON, &r.MetricsAfter); err != nil {
		return fmt.Errorf("unmarshal metrics_after: %w", err)
	}
	if err := json.Unmarshal(linkedJSON, &r.LinkedChangeEvents); err != nil {
		return fmt.Errorf("unmarshal linked_change_events: %w", err)
	}
	return nil
}
