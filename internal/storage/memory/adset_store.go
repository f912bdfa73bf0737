package memory

import (
	"context"
	"sort"
	"sync"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// AdSetStore is an in-memory implementation of storage.AdSetStore.
type AdSetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AdSetRecord // keyed by adset_id
}

// NewAdSetStore creates a new in-memory adset store.
func NewAdSetStore() *AdSetStore {
	return &AdSetStore{
		data: make(map[string]*domain.AdSetRecord),
	}
}

// Compile-time interface check.
var _ storage.AdSetStore = (*AdSetStore)(nil)

// InsertBulk adds multiple rollups. Fails entire batch on duplicate adset_id.
func (s *AdSetStore) InsertBulk(_ context.Context, records []*domain.AdSetRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.AdSetID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.AdSetID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.AdSetID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.AdSetID] = struct{}{}
	}

	for _, r := range records {
		rec := *r
		s.data[r.AdSetID] = &rec
	}

	return nil
}

// GetByCampaignID retrieves all adsets under a campaign, ordered by spend DESC.
func (s *AdSetStore) GetByCampaignID(_ context.Context, campaignID string) ([]*domain.AdSetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AdSetRecord
	for _, r := range s.data {
		if r.CampaignID == campaignID {
			rec := *r
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Spend != result[j].Spend {
			return result[i].Spend > result[j].Spend
		}
		return result[i].AdSetID < result[j].AdSetID
	})

	return result, nil
}
