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

func TestRecommendationStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRecommendationStore(pool)
	ctx := context.Background()

	r := &domain.Recommendation{
		ID:                  "rec_20260810_093000",
		CreatedAt:           time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC),
		Type:                "scale",
		Action:              "Increase Meta prospecting budget by $500/day",
		Channel:             "Meta Ads",
		Campaign:            "Prospecting - Broad US",
		CampaignID:          "cmp_101",
		BudgetChangeAmount:  500,
		BudgetChangePercent: 25,
		Reason:              "Composite score 0.82 with high confidence",
		Confidence:          domain.ConfidenceHigh,
		SignalsUsed:         []string{"last_click", "session_quality"},
		MetricsAtRecommendation: domain.MetricsSnapshot{
			Revenue: 5200, Spend: 1800, MER: 2.89, NCAC: 45.2, CAMPerOrder: 31.0,
		},
		Status:  domain.StatusPending,
		Outcome: domain.OutcomePending,
	}

	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ConfidenceHigh, got.Confidence)
	require.Equal(t, []string{"last_click", "session_quality"}, got.SignalsUsed)
	require.True(t, got.StatusUpdatedAt.IsZero())

	// Duplicate id
	err = store.Insert(ctx, r)
	require.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestRecommendationStore_UpdateLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRecommendationStore(pool)
	ctx := context.Background()

	r := &domain.Recommendation{
		ID:        "rec_20260810_100000",
		CreatedAt: time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC),
		Type:      "cut",
		Status:    domain.StatusPending,
		Outcome:   domain.OutcomePending,
	}
	require.NoError(t, store.Insert(ctx, r))

	r.Status = domain.StatusDone
	r.StatusUpdatedAt = time.Date(2026, 8, 11, 8, 0, 0, 0, time.UTC)
	r.ActionTaken = "Cut TikTok budget by $300/day"
	r.MetricsAfter = map[int]domain.MetricsSnapshot{7: {MER: 3.1, Revenue: 5400}}
	r.Outcome = domain.OutcomePositive
	r.LinkedChangeEvents = []int64{12}
	require.NoError(t, store.Update(ctx, r))

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, got.Status)
	require.False(t, got.StatusUpdatedAt.IsZero())
	require.InDelta(t, 3.1, got.MetricsAfter[7].MER, 1e-9)
	require.Equal(t, []int64{12}, got.LinkedChangeEvents)
	require.Equal(t, domain.OutcomePositive, got.Outcome)

	// Update of missing id
	missing := &domain.Recommendation{ID: "rec_missing", CreatedAt: time.Now().UTC()}
	err = store.Update(ctx, missing)
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRecommendationStore_GetByStatusAndSince(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRecommendationStore(pool)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	statuses := []domain.RecommendationStatus{
		domain.StatusPending, domain.StatusDone, domain.StatusPartial, domain.StatusIgnored,
	}
	for i, st := range statuses {
		r := &domain.Recommendation{
			ID:        time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC).Format("rec_20060102_150405"),
			CreatedAt: base.AddDate(0, 0, i),
			Status:    st,
			Outcome:   domain.OutcomePending,
		}
		require.NoError(t, store.Insert(ctx, r))
	}

	acted, err := store.GetByStatus(ctx, domain.StatusDone, domain.StatusPartial)
	require.NoError(t, err)
	require.Len(t, acted, 2)
	require.True(t, acted[0].CreatedAt.After(acted[1].CreatedAt))

	since, err := store.GetSince(ctx, base.AddDate(0, 0, 2), 10)
	require.NoError(t, err)
	require.Len(t, since, 2)
}
