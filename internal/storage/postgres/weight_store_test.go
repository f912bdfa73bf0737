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

func TestWeightStore_PutGetUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeightStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, domain.WeightSetComposite)
	require.True(t, errors.Is(err, storage.ErrNotFound))

	ws := domain.DefaultCompositeWeights()
	ws.UpdatedAt = time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, ws))

	got, err := store.Get(ctx, domain.WeightSetComposite)
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
	require.InDelta(t, 0.30, got.Weights[domain.SignalLastClick], 1e-9)

	// Promotion bumps version and replaces weights
	ws.Version = 2
	ws.Weights[domain.SignalTrend] = 0.15
	ws.Weights[domain.SignalLastClick] = 0.25
	require.NoError(t, store.Put(ctx, ws))

	got, err = store.Get(ctx, domain.WeightSetComposite)
	require.NoError(t, err)
	require.Equal(t, 2, got.Version)
	require.InDelta(t, 0.25, got.Weights[domain.SignalLastClick], 1e-9)
}

func TestAssessmentStore_PutGetUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssessmentStore(pool)
	ctx := context.Background()

	a := &domain.ImpactAssessment{
		ChangeID:       3,
		WindowDays:     7,
		Status:         domain.ImpactPending,
		ComputedAt:     time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		BaselinePeriod: domain.Period{Start: "2026-08-03", End: "2026-08-09"},
		AfterPeriod:    domain.Period{Start: "2026-08-10", End: "2026-08-16"},
	}
	require.NoError(t, store.Put(ctx, a))

	a.Status = domain.ImpactComplete
	a.Verdict = domain.VerdictPositive
	a.Score = 4.5
	a.Impact.Revenue = domain.MetricDelta{Baseline: 5000, After: 5600, Absolute: 600, Pct: 12, Direction: domain.DirectionUp}
	a.Signals = []string{"revenue up 12.0%"}
	require.NoError(t, store.Put(ctx, a))

	got, err := store.Get(ctx, 3, 7)
	require.NoError(t, err)
	require.Equal(t, domain.ImpactComplete, got.Status)
	require.Equal(t, domain.VerdictPositive, got.Verdict)
	require.Equal(t, domain.DirectionUp, got.Impact.Revenue.Direction)
	require.Equal(t, []string{"revenue up 12.0%"}, got.Signals)

	_, err = store.Get(ctx, 3, 14)
	require.True(t, errors.Is(err, storage.ErrNotFound))
}
