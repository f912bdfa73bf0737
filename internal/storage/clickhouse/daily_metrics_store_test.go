package clickhouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/storage"
)

func TestDailyMetricsStore_InsertBulkAndRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyMetricsStore(conn)
	ctx := context.Background()

	records := []*domain.DailyMetricsRecord{
		{Date: "2026-08-01", Revenue: 4800, Orders: 38, NewCustomerOrders: 12, TotalSpend: 1700, MER: 2.82},
		{Date: "2026-08-02", Revenue: 5100, Orders: 40, NewCustomerOrders: 14, TotalSpend: 1750, MER: 2.91},
		{Date: "2026-08-03", Revenue: 5200, Orders: 41, NewCustomerOrders: 13, TotalSpend: 1800, MER: 2.89},
	}

	require.NoError(t, store.InsertBulk(ctx, records))

	result, err := store.GetByDateRange(ctx, "2026-08-01", "2026-08-02")
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, "2026-08-01", result[0].Date)
	require.Equal(t, 38, result[0].Orders)
	require.InDelta(t, 2.91, result[1].MER, 1e-9)

	latest, err := store.LatestDate(ctx)
	require.NoError(t, err)
	require.Equal(t, "2026-08-03", latest)
}

func TestDailyMetricsStore_DuplicateDate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyMetricsStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.DailyMetricsRecord{{Date: "2026-08-01", Revenue: 4800}}))

	err := store.InsertBulk(ctx, []*domain.DailyMetricsRecord{{Date: "2026-08-01", Revenue: 5000}})
	require.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestDailyMetricsStore_LatestDateEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyMetricsStore(conn)

	_, err := store.LatestDate(context.Background())
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestCampaignAndAdSetStores(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	campaigns := NewCampaignStore(conn)
	adsets := NewAdSetStore(conn)
	ctx := context.Background()

	err := campaigns.InsertBulk(ctx, []*domain.CampaignRecord{
		{CampaignID: "cmp_101", Platform: domain.PlatformMeta, Name: "Prospecting - Broad US", Spend: 1200, LastClickROAS: 2.8, Sessions: 4200},
		{CampaignID: "cmp_102", Platform: domain.PlatformMeta, Name: "Retargeting", Spend: 600, LastClickROAS: 4.5, Sessions: 1100},
		{CampaignID: "cmp_201", Platform: domain.PlatformGoogle, Name: "Brand Search", Spend: 400, LastClickROAS: 6.2, Sessions: 900},
	})
	require.NoError(t, err)

	meta, err := campaigns.GetByPlatform(ctx, domain.PlatformMeta)
	require.NoError(t, err)
	require.Len(t, meta, 2)
	require.Equal(t, "cmp_101", meta[0].CampaignID)

	got, err := campaigns.GetByID(ctx, "cmp_201")
	require.NoError(t, err)
	require.InDelta(t, 6.2, got.LastClickROAS, 1e-9)

	_, err = campaigns.GetByID(ctx, "missing")
	require.True(t, errors.Is(err, storage.ErrNotFound))

	err = adsets.InsertBulk(ctx, []*domain.AdSetRecord{
		{AdSetID: "as_1", CampaignID: "cmp_101", Name: "Broad", Spend: 800, ROAS: 3.1, Orders: 22},
		{AdSetID: "as_2", CampaignID: "cmp_101", Name: "Lookalike 1%", Spend: 400, ROAS: 2.2, Orders: 9},
	})
	require.NoError(t, err)

	children, err := adsets.GetByCampaignID(ctx, "cmp_101")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "as_1", children[0].AdSetID)
}
