package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

func newTestRecommendation(id string, created time.Time, status domain.RecommendationStatus) *domain.Recommendation {
	return &domain.Recommendation{
		ID:         id,
		CreatedAt:  created,
		Type:       "scale",
		Action:     "Increase budget by $500/day",
		Channel:    "meta",
		Status:     status,
		Confidence: domain.ConfidenceMedium,
		Outcome:    domain.OutcomePending,
	}
}

func TestRecommendationStore_InsertAndGet(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	r := newTestRecommendation("rec_20260810_093000", time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC), domain.StatusPending)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Type != "scale" {
		t.Errorf("Type mismatch: got %s", got.Type)
	}
}

func TestRecommendationStore_DuplicateKey(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	r := newTestRecommendation("rec_1", time.Now().UTC(), domain.StatusPending)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, r)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRecommendationStore_UpdateMissing(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	r := newTestRecommendation("rec_missing", time.Now().UTC(), domain.StatusPending)
	err := store.Update(ctx, r)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRecommendationStore_GetByStatus(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recs := []*domain.Recommendation{
		newTestRecommendation("r1", base, domain.StatusPending),
		newTestRecommendation("r2", base.AddDate(0, 0, 1), domain.StatusDone),
		newTestRecommendation("r3", base.AddDate(0, 0, 2), domain.StatusPartial),
		newTestRecommendation("r4", base.AddDate(0, 0, 3), domain.StatusIgnored),
	}
	for _, r := range recs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByStatus(ctx, domain.StatusDone, domain.StatusPartial)
	if err != nil {
		t.Fatalf("GetByStatus failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(result))
	}
	// created_at DESC
	if result[0].ID != "r3" || result[1].ID != "r2" {
		t.Errorf("Unexpected order: %s, %s", result[0].ID, result[1].ID)
	}
}

func TestRecommendationStore_GetSinceLimit(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := newTestRecommendation(
			time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC).Format("rec_20060102_150405"),
			base.AddDate(0, 0, i),
			domain.StatusPending,
		)
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetSince(ctx, base.AddDate(0, 0, 1), 3)
	if err != nil {
		t.Fatalf("GetSince failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d", len(result))
	}
}

func TestRecommendationStore_CloneIsolation(t *testing.T) {
	store := NewRecommendationStore()
	ctx := context.Background()

	r := newTestRecommendation("rec_iso", time.Now().UTC(), domain.StatusPending)
	r.MetricsAfter = map[int]domain.MetricsSnapshot{7: {MER: 3.1}}
	r.SignalsUsed = []string{"last_click"}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "rec_iso")
	got.MetricsAfter[14] = domain.MetricsSnapshot{MER: 2.9}
	got.SignalsUsed[0] = "mutated"

	again, _ := store.GetByID(ctx, "rec_iso")
	if len(again.MetricsAfter) != 1 {
		t.Errorf("Mutating returned map leaked into store: %d entries", len(again.MetricsAfter))
	}
	if again.SignalsUsed[0] != "last_click" {
		t.Errorf("Mutating returned slice leaked into store: %s", again.SignalsUsed[0])
	}
}
