// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scoring metrics
	ScoringPassesTotal  *prometheus.CounterVec
	CampaignsScored     prometheus.Counter
	ScoringPassDuration *prometheus.HistogramVec
	ConcentrationWarns  prometheus.Counter

	// Impact metrics
	AssessmentsComputed *prometheus.CounterVec
	ChangesTracked      prometheus.Gauge
	PendingWindows      prometheus.Gauge

	// Ledger metrics
	RecommendationsCreated    *prometheus.CounterVec
	RecommendationTransitions *prometheus.CounterVec
	OutcomesRecorded          *prometheus.CounterVec
	OutcomeChecksDue          prometheus.Gauge

	// Analysis metrics
	PredictivenessRuns     *prometheus.CounterVec
	WeightSuggestionsTotal prometheus.Counter
	WeightPromotions       prometheus.Counter

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScoringPass prometheus.Gauge
	LastSuccessfulImpactPass  prometheus.Gauge
	UptimeSeconds             prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "marketing_signal_lab"
	}

	return &Metrics{
		// Scoring metrics
		ScoringPassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "passes_total",
			Help:      "Total number of scoring passes by platform and status",
		}, []string{"platform", "status"}),
		CampaignsScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "campaigns_scored_total",
			Help:      "Total number of campaigns scored",
		}),
		ScoringPassDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "pass_duration_seconds",
			Help:      "Scoring pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
		ConcentrationWarns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "concentration_warnings_total",
			Help:      "Total number of budget concentration warnings raised",
		}),

		// Impact metrics
		AssessmentsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "impact",
			Name:      "assessments_computed_total",
			Help:      "Total number of impact assessments computed by verdict",
		}, []string{"verdict"}),
		ChangesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "impact",
			Name:      "changes_tracked",
			Help:      "Number of change events currently being tracked",
		}),
		PendingWindows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "impact",
			Name:      "pending_windows",
			Help:      "Number of tracking windows still waiting for data",
		}),

		// Ledger metrics
		RecommendationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "recommendations_created_total",
			Help:      "Total number of recommendations created by type",
		}, []string{"type"}),
		RecommendationTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "status_transitions_total",
			Help:      "Total number of recommendation status transitions",
		}, []string{"status"}),
		OutcomesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "outcomes_recorded_total",
			Help:      "Total number of recommendation outcomes recorded",
		}, []string{"outcome"}),
		OutcomeChecksDue: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "outcome_checks_due",
			Help:      "Number of acted-upon recommendations awaiting outcome measurement",
		}),

		// Analysis metrics
		PredictivenessRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "predictiveness_runs_total",
			Help:      "Total number of predictiveness analysis runs by status",
		}, []string{"status"}),
		WeightSuggestionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "weight_suggestions_total",
			Help:      "Total number of weight suggestions produced",
		}),
		WeightPromotions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "weight_promotions_total",
			Help:      "Total number of weight set promotions applied",
		}),

		// Cache metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by key prefix",
		}, []string{"kind"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by key prefix",
		}, []string{"kind"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulScoringPass: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scoring_pass_timestamp",
			Help:      "Unix timestamp of last successful scoring pass",
		}),
		LastSuccessfulImpactPass: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_impact_pass_timestamp",
			Help:      "Unix timestamp of last successful impact pass",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScoringPass records a completed scoring pass.
func RecordScoringPass(platform, status string, durationSeconds float64, campaigns, warnings int) {
	DefaultMetrics.ScoringPassesTotal.WithLabelValues(platform, status).Inc()
	DefaultMetrics.ScoringPassDuration.WithLabelValues(platform).Observe(durationSeconds)
	DefaultMetrics.CampaignsScored.Add(float64(campaigns))
	DefaultMetrics.ConcentrationWarns.Add(float64(warnings))
}

// RecordAssessment increments the assessment counter for a verdict.
func RecordAssessment(verdict string) {
	DefaultMetrics.AssessmentsComputed.WithLabelValues(verdict).Inc()
}

// RecordRecommendationCreated increments the creation counter for a type.
func RecordRecommendationCreated(recType string) {
	DefaultMetrics.RecommendationsCreated.WithLabelValues(recType).Inc()
}

// RecordTransition increments the transition counter for a target status.
func RecordTransition(status string) {
	DefaultMetrics.RecommendationTransitions.WithLabelValues(status).Inc()
}

// RecordOutcome increments the outcome counter.
func RecordOutcome(outcome string) {
	DefaultMetrics.OutcomesRecorded.WithLabelValues(outcome).Inc()
}

// RecordCacheAccess records a cache hit or miss.
func RecordCacheAccess(kind string, hit bool) {
	if hit {
		DefaultMetrics.CacheHits.WithLabelValues(kind).Inc()
	} else {
		DefaultMetrics.CacheMisses.WithLabelValues(kind).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
