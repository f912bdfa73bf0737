package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// WeightStore implements storage.WeightStore using PostgreSQL. The weight
// map is stored as JSONB; one row per named set.
type WeightStore struct {
	pool *Pool
}

// NewWeightStore creates a new WeightStore.
func NewWeightStore(pool *Pool) *WeightStore {
	return &WeightStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WeightStore = (*WeightStore)(nil)

// Get retrieves the current set by name. Returns ErrNotFound if no set has
// been stored under that name.
func (s *WeightStore) Get(ctx context.Context, name string) (*domain.WeightSet, error) {
	query := `
		SELECT name, version, weights, updated_at
		FROM weight_sets
		WHERE name = $1
	`

	var (
		ws          domain.WeightSet
		weightsJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, name).Scan(&ws.Name, &ws.Version, &weightsJSON, &ws.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get weight set: %w", err)
	}

	if err := json.Unmarshal(weightsJSON, &ws.Weights); err != nil {
		return nil, fmt.Errorf("unmarshal weights: %w", err)
	}
	return &ws, nil
}

// Put upserts a set. The caller is responsible for bumping Version.
func (s *WeightStore) Put(ctx context.Context, ws *domain.WeightSet) error {
	if ws == nil || ws.Name == "" || len(ws.Weights) == 0 {
		return storage.ErrInvalidInput
	}

	weightsJSON, err := json.Marshal(ws.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}

	query := `
		INSERT INTO weight_sets (name, version, weights, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			version = EXCLUDED.version,
			weights = EXCLUDED.weights,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query, ws.Name, ws.Version, weightsJSON, ws.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put weight set: %w", err)
	}
	return nil
}
