package storage

import (
	"context"
	"time"

	"marketing-signal-lab/internal/domain"
)

// DailyMetricsStore provides access to the daily_metrics time series.
// Records are append-only and immutable; dates are unique.
type DailyMetricsStore interface {
	// InsertBulk adds multiple records. Fails the entire batch on a
	// duplicate date (existing or intra-batch).
	InsertBulk(ctx context.Context, records []*domain.DailyMetricsRecord) error

	// GetByDateRange retrieves records with start <= date <= end,
	// ordered by date ASC.
	GetByDateRange(ctx context.Context, start, end string) ([]*domain.DailyMetricsRecord, error)

	// LatestDate returns the most recent date present.
	// Returns ErrNotFound when the store is empty.
	LatestDate(ctx context.Context) (string, error)
}

// CampaignStore provides access to per-campaign rollups.
type CampaignStore interface {
	// InsertBulk adds multiple rollups. Fails entire batch on duplicate
	// campaign_id.
	InsertBulk(ctx context.Context, records []*domain.CampaignRecord) error

	// GetByID retrieves a rollup by campaign id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, campaignID string) (*domain.CampaignRecord, error)

	// GetByPlatform retrieves all rollups for a platform, ordered by spend DESC.
	GetByPlatform(ctx context.Context, platform domain.Platform) ([]*domain.CampaignRecord, error)
}

// AdSetStore provides access to adset rollups.
type AdSetStore interface {
	// InsertBulk adds multiple rollups. Fails entire batch on duplicate
	// adset_id.
	InsertBulk(ctx context.Context, records []*domain.AdSetRecord) error

	// GetByCampaignID retrieves all adsets under a campaign, ordered by
	// spend DESC.
	GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.AdSetRecord, error)
}

// ChangeEventStore provides access to the append-only change log.
type ChangeEventStore interface {
	// Insert adds a new event and returns its assigned id.
	Insert(ctx context.Context, e *domain.ChangeEvent) (int64, error)

	// GetByID retrieves an event by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.ChangeEvent, error)

	// GetByTimeRange retrieves events with start <= timestamp <= end,
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ChangeEvent, error)

	// GetRecent retrieves up to limit events with timestamp >= since,
	// ordered by timestamp DESC.
	GetRecent(ctx context.Context, since time.Time, limit int) ([]*domain.ChangeEvent, error)
}

// RecommendationStore provides access to the recommendation ledger.
type RecommendationStore interface {
	// Insert adds a new recommendation. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r *domain.Recommendation) error

	// GetByID retrieves a recommendation by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Recommendation, error)

	// Update replaces an existing recommendation. Returns ErrNotFound if
	// the id does not exist.
	Update(ctx context.Context, r *domain.Recommendation) error

	// GetSince retrieves up to limit recommendations created at or after
	// since, ordered by created_at DESC.
	GetSince(ctx context.Context, since time.Time, limit int) ([]*domain.Recommendation, error)

	// GetByStatus retrieves all recommendations in any of the given
	// statuses, ordered by created_at DESC.
	GetByStatus(ctx context.Context, statuses ...domain.RecommendationStatus) ([]*domain.Recommendation, error)
}

// AssessmentStore caches derived impact assessments keyed by
// (change id, window days). Cached values are not a source of truth:
// losing them only costs recomputation.
type AssessmentStore interface {
	// Put upserts an assessment.
	Put(ctx context.Context, a *domain.ImpactAssessment) error

	// Get retrieves an assessment. Returns ErrNotFound if not cached.
	Get(ctx context.Context, changeID int64, windowDays int) (*domain.ImpactAssessment, error)
}

// CorrelationStore caches correlation results keyed by
// (leading, lagging, lag days).
type CorrelationStore interface {
	// Put upserts a result.
	Put(ctx context.Context, r *domain.CorrelationResult) error

	// Get retrieves a result. Returns ErrNotFound if not cached.
	Get(ctx context.Context, leading, lagging string, lagDays int) (*domain.CorrelationResult, error)
}

// WeightStore provides access to the current named weight sets.
type WeightStore interface {
	// Get retrieves the current set by name. Returns ErrNotFound if no
	// set has been stored under that name.
	Get(ctx context.Context, name string) (*domain.WeightSet, error)

	// Put upserts a set. The caller is responsible for bumping Version.
	Put(ctx context.Context, ws *domain.WeightSet) error
}
