package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

func TestChangeEventStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChangeEventStore(pool)
	ctx := context.Background()

	e := &domain.ChangeEvent{
		Timestamp:   time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC),
		ActionType:  domain.ActionSpendIncrease,
		Description: "Raised Meta prospecting budget",
		Channel:     "Meta Ads",
		Campaign:    "Prospecting - Broad US",
		CampaignID:  "cmp_101",
		Amount:      500,
		Snapshot: domain.MetricsSnapshot{
			Revenue: 5200, Spend: 1800, MER: 2.89, NCAC: 45.2, CAMPerOrder: 31.0,
		},
	}

	id, err := store.Insert(ctx, e)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.ActionSpendIncrease, got.ActionType)
	require.Equal(t, "cmp_101", got.CampaignID)
	require.InDelta(t, 2.89, got.Snapshot.MER, 1e-9)
	require.True(t, got.Timestamp.Equal(e.Timestamp))
}

func TestChangeEventStore_RangeAndRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChangeEventStore(pool)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.Insert(ctx, &domain.ChangeEvent{
			Timestamp:  base.AddDate(0, 0, i),
			ActionType: domain.ActionBudgetShift,
			Channel:    "Google Ads",
		})
		require.NoError(t, err)
	}

	inRange, err := store.GetByTimeRange(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, inRange, 3)
	for i := 1; i < len(inRange); i++ {
		require.True(t, inRange[i-1].Timestamp.Before(inRange[i].Timestamp))
	}

	recent, err := store.GetRecent(ctx, base, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.True(t, recent[0].Timestamp.After(recent[1].Timestamp))
}

func TestChangeEventStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChangeEventStore(pool)

	_, err := store.GetByID(context.Background(), 9999)
	require.True(t, errors.Is(err, storage.ErrNotFound))
}
