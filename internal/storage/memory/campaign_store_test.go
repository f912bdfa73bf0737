package memory

import (
	"context"
	"errors"
	"testing"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

func TestCampaignStore_InsertAndGet(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	c := &domain.CampaignRecord{
		CampaignID:   "cmp_101",
		Platform:     domain.PlatformMeta,
		Name:         "Prospecting - Broad US",
		Spend:        1200,
		PlatformROAS: 3.1,
	}

	if err := store.InsertBulk(ctx, []*domain.CampaignRecord{c}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByID(ctx, "cmp_101")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Prospecting - Broad US" {
		t.Errorf("Name mismatch: got %s", got.Name)
	}
}

func TestCampaignStore_NotFound(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCampaignStore_GetByPlatformOrdered(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	records := []*domain.CampaignRecord{
		{CampaignID: "c1", Platform: domain.PlatformMeta, Spend: 500},
		{CampaignID: "c2", Platform: domain.PlatformMeta, Spend: 1500},
		{CampaignID: "c3", Platform: domain.PlatformGoogle, Spend: 900},
		{CampaignID: "c4", Platform: domain.PlatformMeta, Spend: 1000},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByPlatform(ctx, domain.PlatformMeta)
	if err != nil {
		t.Fatalf("GetByPlatform failed: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected 3 meta campaigns, got %d", len(result))
	}
	for i := 1; i < len(result); i++ {
		if result[i-1].Spend < result[i].Spend {
			t.Error("Results not ordered by spend DESC")
		}
	}
}

func TestCampaignStore_DuplicateID(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	c := &domain.CampaignRecord{CampaignID: "c1", Platform: domain.PlatformTikTok, Spend: 200}
	if err := store.InsertBulk(ctx, []*domain.CampaignRecord{c}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.CampaignRecord{c})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestAdSetStore_GetByCampaignIDOrdered(t *testing.T) {
	store := NewAdSetStore()
	ctx := context.Background()

	records := []*domain.AdSetRecord{
		{AdSetID: "a1", CampaignID: "c1", Name: "Lookalike 1%", Spend: 300, ROAS: 2.8, Orders: 12},
		{AdSetID: "a2", CampaignID: "c1", Name: "Broad", Spend: 700, ROAS: 3.4, Orders: 25},
		{AdSetID: "a3", CampaignID: "c2", Name: "Retargeting", Spend: 150, ROAS: 5.0, Orders: 9},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByCampaignID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByCampaignID failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 adsets, got %d", len(result))
	}
	if result[0].AdSetID != "a2" {
		t.Errorf("Expected highest-spend adset first, got %s", result[0].AdSetID)
	}
}
