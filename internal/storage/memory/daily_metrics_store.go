package memory

import (
	"context"
	"sort"
	"sync"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// DailyMetricsStore is an in-memory implementation of storage.DailyMetricsStore.
type DailyMetricsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyMetricsRecord // keyed by date
}

// NewDailyMetricsStore creates a new in-memory daily metrics store.
func NewDailyMetricsStore() *DailyMetricsStore {
	return &DailyMetricsStore{
		data: make(map[string]*domain.DailyMetricsRecord),
	}
}

// Compile-time interface check.
var _ storage.DailyMetricsStore = (*DailyMetricsStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on any duplicate date.
func (s *DailyMetricsStore) InsertBulk(_ context.Context, records []*domain.DailyMetricsRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and detect duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Date == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.Date]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.Date]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.Date] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		rec := *r
		s.data[r.Date] = &rec
	}

	return nil
}

// GetByDateRange retrieves records with start <= date <= end, ordered by date ASC.
func (s *DailyMetricsStore) GetByDateRange(_ context.Context, start, end string) ([]*domain.DailyMetricsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyMetricsRecord
	for date, r := range s.data {
		if date >= start && date <= end {
			rec := *r
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	return result, nil
}

// LatestDate returns the most recent date present. Returns ErrNotFound when empty.
func (s *DailyMetricsStore) LatestDate(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return "", storage.ErrNotFound
	}

	latest := ""
	for date := range s.data {
		if date > latest {
			latest = date
		}
	}
	return latest, nil
}
