package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// AssessmentStore implements storage.AssessmentStore using PostgreSQL.
// The per-metric delta block is stored as JSONB; keeping complete
// assessments durable is what pins their baseline/after periods.
type AssessmentStore struct {
	pool *Pool
}

// NewAssessmentStore creates a new AssessmentStore.
func NewAssessmentStore(pool *Pool) *AssessmentStore {
	return &AssessmentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssessmentStore = (*AssessmentStore)(nil)

// Put upserts an assessment.
func (s *AssessmentStore) Put(ctx context.Context, a *domain.ImpactAssessment) error {
	if a == nil || a.ChangeID <= 0 || a.WindowDays <= 0 {
		return storage.ErrInvalidInput
	}

	impactJSON, err := json.Marshal(a.Impact)
	if err != nil {
		return fmt.Errorf("marshal impact: %w", err)
	}
	signalsJSON, err := json.Marshal(a.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	query := `
		INSERT INTO impact_assessments (
			change_id, window_days, status, computed_at,
			baseline_start, baseline_end, after_start, after_end,
			impact, verdict, score, reason, signals
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)
		ON CONFLICT (change_id, window_days) DO UPDATE SET
			status = EXCLUDED.status,
			computed_at = EXCLUDED.computed_at,
			baseline_start = EXCLUDED.baseline_start,
			baseline_end = EXCLUDED.baseline_end,
			after_start = EXCLUDED.after_start,
			after_end = EXCLUDED.after_end,
			impact = EXCLUDED.impact,
			verdict = EXCLUDED.verdict,
			score = EXCLUDED.score,
			reason = EXCLUDED.reason,
			signals = EXCLUDED.signals
	`

	_, err = s.pool.Exec(ctx, query,
		a.ChangeID, a.WindowDays, a.Status, a.ComputedAt,
		a.BaselinePeriod.Start, a.BaselinePeriod.End, a.AfterPeriod.Start, a.AfterPeriod.End,
		impactJSON, a.Verdict, a.Score, a.Reason, signalsJSON,
	)
	if err != nil {
		return fmt.Errorf("put impact assessment: %w", err)
	}
	return nil
}

// Get retrieves an assessment. Returns ErrNotFound if not cached.
func (s *AssessmentStore) Get(ctx context.Context, changeID int64, windowDays int) (*domain.ImpactAssessment, error) {
	query := `
		SELECT
			change_id, window_days, status, computed_at,
			baseline_start, baseline_end, after_start, after_end,
			impact, verdict, score, reason, signals
		FROM impact_assessments
		WHERE change_id = $1 AND window_days = $2
	`

	var (
		a           domain.ImpactAssessment
		impactJSON  []byte
		signalsJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, changeID, windowDays).Scan(
		&a.ChangeID, &a.WindowDays, &a.Status, &a.ComputedAt,
		&a.BaselinePeriod.Start, &a.BaselinePeriod.End, &a.AfterPeriod.Start, &a.AfterPeriod.End,
		&impactJSON, &a.Verdict, &a.Score, &a.Reason, &signalsJSON,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get impact assessment: %w", err)
	}

	if err := json.Unmarshal(impactJSON, &a.Impact); err != nil {
		return nil, fmt.Errorf("unmarshal impact: %w", err)
	}
	if err := json.Unmarshal(signalsJSON, &a.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	return &a, nil
}
