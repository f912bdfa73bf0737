package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// RecommendationStore is an in-memory implementation of
// storage.RecommendationStore.
type RecommendationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Recommendation // keyed by id
}

// NewRecommendationStore creates a new in-memory recommendation store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{
		data: make(map[string]*domain.Recommendation),
	}
}

// Compile-time interface check.
var _ storage.RecommendationStore = (*RecommendationStore)(nil)

// Insert adds a new recommendation. Returns ErrDuplicateKey if the id exists.
func (s *RecommendationStore) Insert(_ context.Context, r *domain.Recommendation) error {
	if r == nil || r.ID == "" || r.CreatedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = r.Clone()
	return nil
}

// GetByID retrieves a recommendation by id. Returns ErrNotFound if not exists.
func (s *RecommendationStore) GetByID(_ context.Context, id string) (*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return r.Clone(), nil
}

// Update replaces an existing recommendation. Returns ErrNotFound if the id
// does not exist.
func (s *RecommendationStore) Update(_ context.Context, r *domain.Recommendation) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; !exists {
		return storage.ErrNotFound
	}

	s.data[r.ID] = r.Clone()
	return nil
}

// GetSince retrieves up to limit recommendations created at or after since,
// ordered by created_at DESC. limit <= 0 means no limit.
func (s *RecommendationStore) GetSince(_ context.Context, since time.Time, limit int) ([]*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Recommendation
	for _, r := range s.data {
		if !r.CreatedAt.Before(since) {
			result = append(result, r.Clone())
		}
	}

	sortByCreatedDesc(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// GetByStatus retrieves all recommendations in any of the given statuses,
// ordered by created_at DESC.
func (s *RecommendationStore) GetByStatus(_ context.Context, statuses ...domain.RecommendationStatus) ([]*domain.Recommendation, error) {
	wanted := make(map[domain.RecommendationStatus]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Recommendation
	for _, r := range s.data {
		if _, ok := wanted[r.Status]; ok {
			result = append(result, r.Clone())
		}
	}

	sortByCreatedDesc(result)

	return result, nil
}

func sortByCreatedDesc(recs []*domain.Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}
