package memory

import (
	"context"
	"fmt"
	"sync"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// AssessmentStore is an in-memory implementation of storage.AssessmentStore.
type AssessmentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ImpactAssessment // keyed by "changeID:windowDays"
}

// NewAssessmentStore creates a new in-memory assessment store.
func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{
		data: make(map[string]*domain.ImpactAssessment),
	}
}

// Compile-time interface check.
var _ storage.AssessmentStore = (*AssessmentStore)(nil)

func assessmentKey(changeID int64, windowDays int) string {
	return fmt.Sprintf("%d:%d", changeID, windowDays)
}

// Put upserts an assessment.
func (s *AssessmentStore) Put(_ context.Context, a *domain.ImpactAssessment) error {
	if a == nil || a.ChangeID <= 0 || a.WindowDays <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *a
	rec.Signals = append([]string(nil), a.Signals...)
	s.data[assessmentKey(a.ChangeID, a.WindowDays)] = &rec

	return nil
}

// Get retrieves an assessment. Returns ErrNotFound if not cached.
func (s *AssessmentStore) Get(_ context.Context, changeID int64, windowDays int) (*domain.ImpactAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[assessmentKey(changeID, windowDays)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rec := *a
	rec.Signals = append([]string(nil), a.Signals...)
	return &rec, nil
}
