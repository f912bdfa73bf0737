package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

// ChangeEventStore is an in-memory implementation of storage.ChangeEventStore.
// IDs are assigned sequentially starting at 1.
type ChangeEventStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.ChangeEvent
	nextID int64
}

// NewChangeEventStore creates a new in-memory change event store.
func NewChangeEventStore() *ChangeEventStore {
	return &ChangeEventStore{
		data:   make(map[int64]*domain.ChangeEvent),
		nextID: 1,
	}
}

// Compile-time interface check.
var _ storage.ChangeEventStore = (*ChangeEventStore)(nil)

// Insert adds a new event and returns its assigned id.
func (s *ChangeEventStore) Insert(_ context.Context, e *domain.ChangeEvent) (int64, error) {
	if e == nil || e.Timestamp.IsZero() || e.ActionType == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *e
	rec.ID = s.nextID
	s.nextID++
	s.data[rec.ID] = &rec

	return rec.ID, nil
}

// GetByID retrieves an event by id. Returns ErrNotFound if not exists.
func (s *ChangeEventStore) GetByID(_ context.Context, id int64) (*domain.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rec := *e
	return &rec, nil
}

// GetByTimeRange retrieves events with start <= timestamp <= end, ordered by
// timestamp ASC.
func (s *ChangeEventStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ChangeEvent
	for _, e := range s.data {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			rec := *e
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetRecent retrieves up to limit events with timestamp >= since, ordered by
// timestamp DESC. limit <= 0 means no limit.
func (s *ChangeEventStore) GetRecent(_ context.Context, since time.Time, limit int) ([]*domain.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ChangeEvent
	for _, e := range s.data {
		if !e.Timestamp.Before(since) {
			rec := *e
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
