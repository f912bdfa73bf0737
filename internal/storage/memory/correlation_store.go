package memory

import (
	"context"
	"fmt"
	"sync"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// CorrelationStore is an in-memory implementation of storage.CorrelationStore.
type CorrelationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CorrelationResult // keyed by "leading:lagging:lagDays"
}

// NewCorrelationStore creates a new in-memory correlation store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{
		data: make(map[string]*domain.CorrelationResult),
	}
}

// Compile-time interface check.
var _ storage.CorrelationStore = (*CorrelationStore)(nil)

func correlationKey(leading, lagging string, lagDays int) string {
	return fmt.Sprintf("%s:%s:%d", leading, lagging, lagDays)
}

// Put upserts a result.
func (s *CorrelationStore) Put(_ context.Context, r *domain.CorrelationResult) error {
	if r == nil || r.Leading == "" || r.Lagging == "" || r.LagDays < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *r
	s.data[correlationKey(r.Leading, r.Lagging, r.LagDays)] = &rec

	return nil
}

// Get retrieves a result. Returns ErrNotFound if not cached.
func (s *CorrelationStore) Get(_ context.Context, leading, lagging string, lagDays int) (*domain.CorrelationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[correlationKey(leading, lagging, lagDays)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rec := *r
	return &rec, nil
}
