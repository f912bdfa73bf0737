package memory

import (
	"context"
	"sort"
	"sync"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// CampaignStore is an in-memory implementation of storage.CampaignStore.
type CampaignStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CampaignRecord // keyed by campaign_id
}

// NewCampaignStore creates a new in-memory campaign store.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		data: make(map[string]*domain.CampaignRecord),
	}
}

// Compile-time interface check.
var _ storage.CampaignStore = (*CampaignStore)(nil)

// InsertBulk adds multiple rollups. Fails entire batch on duplicate campaign_id.
func (s *CampaignStore) InsertBulk(_ context.Context, records []*domain.CampaignRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.CampaignID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.CampaignID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.CampaignID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.CampaignID] = struct{}{}
	}

	for _, r := range records {
		rec := *r
		s.data[r.CampaignID] = &rec
	}

	return nil
}

// GetByID retrieves a rollup by campaign id. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByID(_ context.Context, campaignID string) (*domain.CampaignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[campaignID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rec := *r
	return &rec, nil
}

// GetByPlatform retrieves all rollups for a platform, ordered by spend DESC.
func (s *CampaignStore) GetByPlatform(_ context.Context, platform domain.Platform) ([]*domain.CampaignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CampaignRecord
	for _, r := range s.data {
		if r.Platform == platform {
			rec := *r
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Spend != result[j].Spend {
			return result[i].Spend > result[j].Spend
		}
		return result[i].CampaignID < result[j].CampaignID
	})

	return result, nil
}
