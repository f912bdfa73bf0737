package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

func TestAssessmentStore_PutGetUpsert(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	a := &domain.ImpactAssessment{
		ChangeID:   7,
		WindowDays: 7,
		Status:     domain.ImpactPending,
		ComputedAt: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Put(ctx, a); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Upsert to complete
	a.Status = domain.ImpactComplete
	a.Verdict = domain.VerdictPositive
	a.Score = 4.5
	if err := store.Put(ctx, a); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, 7, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.ImpactComplete || got.Score != 4.5 {
		t.Errorf("Upsert not applied: status=%s score=%f", got.Status, got.Score)
	}

	// Different window is a different key
	_, err = store.Get(ctx, 7, 14)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other window, got %v", err)
	}
}

func TestAssessmentStore_InvalidInput(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	err := store.Put(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Put(ctx, &domain.ImpactAssessment{ChangeID: 1, WindowDays: 0})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero window, got %v", err)
	}
}

func TestCorrelationStore_PutGet(t *testing.T) {
	store := NewCorrelationStore()
	ctx := context.Background()

	r := &domain.CorrelationResult{
		Leading:    "meta_spend",
		Lagging:    "revenue",
		LagDays:    7,
		R:          0.63,
		Strength:   domain.StrengthModerate,
		Direction:  domain.DirectionPositive,
		SampleSize: 30,
	}
	if err := store.Put(ctx, r); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "meta_spend", "revenue", 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.R != 0.63 {
		t.Errorf("R mismatch: got %f", got.R)
	}

	_, err = store.Get(ctx, "meta_spend", "revenue", 14)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other lag, got %v", err)
	}
}

func TestWeightStore_PutGetClone(t *testing.T) {
	store := NewWeightStore()
	ctx := context.Background()

	_, err := store.Get(ctx, domain.WeightSetComposite)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on empty store, got %v", err)
	}

	ws := domain.DefaultCompositeWeights()
	if err := store.Put(ctx, ws); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, domain.WeightSetComposite)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	got.Weights[domain.SignalLastClick] = 0.99

	again, _ := store.Get(ctx, domain.WeightSetComposite)
	if again.Weights[domain.SignalLastClick] == 0.99 {
		t.Error("Mutating returned weights leaked into store")
	}
}
