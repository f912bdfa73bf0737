package postgres

import (
	"context"
	"fmt"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// CorrelationStore implements storage.CorrelationStore using PostgreSQL.
// Rows are a recomputable cache of lagged Pearson results.
type CorrelationStore struct {
	pool *Pool
}

// NewCorrelationStore creates a new CorrelationStore.
func NewCorrelationStore(pool *Pool) *CorrelationStore {
	return &CorrelationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CorrelationStore = (*CorrelationStore)(nil)

// Put upserts a result.
func (s *CorrelationStore) Put(ctx context.Context, r *domain.CorrelationResult) error {
	if r == nil || r.Leading == "" || r.Lagging == "" || r.LagDays < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO correlation_results (
			leading, lagging, lag_days, r, strength, direction, sample_size, tag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (leading, lagging, lag_days) DO UPDATE SET
			r = EXCLUDED.r,
			strength = EXCLUDED.strength,
			direction = EXCLUDED.direction,
			sample_size = EXCLUDED.sample_size,
			tag = EXCLUDED.tag
	`

	_, err := s.pool.Exec(ctx, query,
		r.Leading, r.Lagging, r.LagDays, r.R, r.Strength, r.Direction, r.SampleSize, r.Tag,
	)
	if err != nil {
		return fmt.Errorf("put correlation result: %w", err)
	}
	return nil
}

// Get retrieves a result. Returns ErrNotFound if not cached.
func (s *CorrelationStore) Get(ctx context.Context, leading, lagging string, lagDays int) (*domain.CorrelationResult, error) {
	query := `
		SELECT leading, lagging, lag_days, r, strength, direction, sample_size, tag
		FROM correlation_results
		WHERE leading = $1 AND lagging = $2 AND lag_days = $3
	`

	var r domain.CorrelationResult
	err := s.pool.QueryRow(ctx, query, leading, lagging, lagDays).Scan(
		&r.Leading, &r.Lagging, &r.LagDays, &r.R, &r.Strength, &r.Direction, &r.SampleSize, &r.Tag,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get correlation result: %w", err)
	}
	return &r, nil
}
