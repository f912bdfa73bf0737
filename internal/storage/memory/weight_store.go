package memory

import (
	"context"
	"sync"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// WeightStore is an in-memory implementation of storage.WeightStore.
type WeightStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WeightSet // keyed by set name
}

// NewWeightStore creates a new in-memory weight store.
func NewWeightStore() *WeightStore {
	return &WeightStore{
		data: make(map[string]*domain.WeightSet),
	}
}

// Compile-time interface check.
var _ storage.WeightStore = (*WeightStore)(nil)

// Get retrieves the current set by name. Returns ErrNotFound if no set has
// been stored under that name.
func (s *WeightStore) Get(_ context.Context, name string) (*domain.WeightSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, exists := s.data[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return ws.Clone(), nil
}

// Put upserts a set. The caller is responsible for bumping Version.
func (s *WeightStore) Put(_ context.Context, ws *domain.WeightSet) error {
	if ws == nil || ws.Name == "" || len(ws.Weights) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[ws.Name] = ws.Clone()
	return nil
}
