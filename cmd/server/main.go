// Package main provides the unified analysis server:
// - Scoring (scheduled): per-platform campaign scoring passes
// - Impact (scheduled): change impact assessment over the tracking windows
// - Outcome checks (scheduled): measuring acted-upon recommendations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/impact"
	"marketing-signal-lab/internal/ledger"
	"marketing-signal-lab/internal/observability"
	"marketing-signal-lab/internal/predictive"
	"marketing-signal-lab/internal/scoring"
	"marketing-signal-lab/internal/storage"
	chstore "marketing-signal-lab/internal/storage/clickhouse"
	"marketing-signal-lab/internal/storage/memory"
	"marketing-signal-lab/internal/storage/migrations"
	pgstore "marketing-signal-lab/internal/storage/postgres"
	"marketing-signal-lab/internal/weights"
)

// Platform aliases accepted on the command line.
var platformAliases = map[string]domain.Platform{
	"meta":     domain.PlatformMeta,
	"facebook": domain.PlatformMeta,
	"google":   domain.PlatformGoogle,
	"tiktok":   domain.PlatformTikTok,
}

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	postgresDSN          string
	clickhouseDSN        string
	useMemory            bool
	platforms            []domain.Platform
	scoreInterval        time.Duration
	impactInterval       time.Duration
	outcomeCheckInterval time.Duration

	// Stores
	stores *allStores

	// Components
	scorer   *scoring.Scorer
	tracker  *impact.Tracker
	analyzer *predictive.Analyzer
	ledger   *ledger.Ledger
	weights  *weights.Manager
	logger   *log.Logger

	// State
	mu              sync.Mutex
	lastScoringPass time.Time
	lastImpactPass  time.Time
	lastOutcomePass time.Time
	scoringRunning  bool
	impactRunning   bool
	started         time.Time

	// Stats
	scoringPasses int
	impactPasses  int
	outcomePasses int
}

// allStores holds all storage implementations.
type allStores struct {
	metricsStore        storage.DailyMetricsStore
	campaignStore       storage.CampaignStore
	adsetStore          storage.AdSetStore
	changeEventStore    storage.ChangeEventStore
	recommendationStore storage.RecommendationStore
	assessmentStore     storage.AssessmentStore
	correlationStore    storage.CorrelationStore
	weightStore         storage.WeightStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	platforms := flag.String("platforms", "meta,google,tiktok", "Comma-separated ad platforms to score")
	scoreInterval := flag.Duration("score-interval", 15*time.Minute, "Campaign scoring pass interval")
	impactInterval := flag.Duration("impact-interval", 30*time.Minute, "Change impact pass interval")
	outcomeCheckInterval := flag.Duration("outcome-check-interval", 6*time.Hour, "Recommendation outcome check interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	platformList := resolvePlatforms(*platforms)
	if len(platformList) == 0 {
		logger.Fatal("No platforms specified. Use --platforms")
	}
	logger.Printf("Scoring platforms: %v", platformList)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores (runs migrations in database mode)
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create server
	server := &Server{
		postgresDSN:          *postgresDSN,
		clickhouseDSN:        *clickhouseDSN,
		useMemory:            *useMemory,
		platforms:            platformList,
		scoreInterval:        *scoreInterval,
		impactInterval:       *impactInterval,
		outcomeCheckInterval: *outcomeCheckInterval,
		stores:               stores,
		scorer:               scoring.NewScorer(stores.campaignStore, stores.adsetStore, stores.weightStore, log.New(os.Stdout, "[scoring] ", log.LstdFlags)),
		tracker:              impact.NewTracker(stores.metricsStore, stores.changeEventStore, stores.assessmentStore, stores.weightStore, nil, log.New(os.Stdout, "[impact] ", log.LstdFlags)),
		analyzer:             predictive.NewAnalyzer(stores.metricsStore, stores.correlationStore, stores.weightStore, nil, log.New(os.Stdout, "[predictive] ", log.LstdFlags)),
		ledger:               ledger.New(stores.recommendationStore, nil, log.New(os.Stdout, "[ledger] ", log.LstdFlags)),
		weights:              weights.NewManager(stores.weightStore, nil, logger),
		logger:               logger,
	}

	// Seed default weight sets for any missing names. Promoted sets are
	// never overwritten.
	if err := server.weights.Seed(ctx); err != nil {
		logger.Fatalf("Failed to seed weight sets: %v", err)
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// resolvePlatforms resolves platforms from the comma-separated flag.
func resolvePlatforms(platforms string) []domain.Platform {
	seen := make(map[domain.Platform]bool)
	var list []domain.Platform
	for _, alias := range strings.Split(platforms, ",") {
		alias = strings.TrimSpace(strings.ToLower(alias))
		p, ok := platformAliases[alias]
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		list = append(list, p)
	}
	return list
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			metricsStore:        memory.NewDailyMetricsStore(),
			campaignStore:       memory.NewCampaignStore(),
			adsetStore:          memory.NewAdSetStore(),
			changeEventStore:    memory.NewChangeEventStore(),
			recommendationStore: memory.NewRecommendationStore(),
			assessmentStore:     memory.NewAssessmentStore(),
			correlationStore:    memory.NewCorrelationStore(),
			weightStore:         memory.NewWeightStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL (change log, ledger, weights, derived caches)
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse (daily metrics and rollup analytics)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		metricsStore:  chstore.NewDailyMetricsStore(chConn),
		campaignStore: chstore.NewCampaignStore(chConn),
		adsetStore:    chstore.NewAdSetStore(chConn),

		changeEventStore:    pgstore.NewChangeEventStore(pool),
		recommendationStore: pgstore.NewRecommendationStore(pool),
		assessmentStore:     pgstore.NewAssessmentStore(pool),
		correlationStore:    pgstore.NewCorrelationStore(pool),
		weightStore:         pgstore.NewWeightStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all schedulers.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, 3)

	go func() {
		err := s.runScoringScheduler(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("scoring scheduler: %w", err)
		}
	}()

	go func() {
		err := s.runImpactScheduler(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("impact scheduler: %w", err)
		}
	}()

	go func() {
		err := s.runOutcomeScheduler(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outcome scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runScoringScheduler runs scoring passes on schedule.
func (s *Server) runScoringScheduler(ctx context.Context) error {
	s.logger.Printf("Starting scoring scheduler (interval: %v)...", s.scoreInterval)

	// Run immediately on start
	s.runScoringPass(ctx)

	ticker := time.NewTicker(s.scoreInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runScoringPass(ctx)
		}
	}
}

// runScoringPass scores every configured platform.
func (s *Server) runScoringPass(ctx context.Context) {
	s.mu.Lock()
	if s.scoringRunning {
		s.mu.Unlock()
		s.logger.Println("Scoring pass already running, skipping...")
		return
	}
	s.scoringRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scoringRunning = false
		s.lastScoringPass = time.Now()
		s.scoringPasses++
		s.mu.Unlock()
	}()

	for _, platform := range s.platforms {
		start := time.Now()
		view, err := s.scorer.BuildPlatformView(ctx, platform)
		if err != nil {
			s.logger.Printf("Scoring pass %s error: %v", platform, err)
			observability.RecordScoringPass(string(platform), "error", time.Since(start).Seconds(), 0, 0)
			continue
		}

		s.logger.Printf("Scored %s: %d campaigns, %d concentration warnings in %v",
			platform, len(view.Campaigns), len(view.Warnings), time.Since(start))
		observability.RecordScoringPass(string(platform), "success", time.Since(start).Seconds(), len(view.Campaigns), len(view.Warnings))
	}

	observability.DefaultMetrics.LastSuccessfulScoringPass.SetToCurrentTime()
}

// runImpactScheduler runs impact passes on schedule.
func (s *Server) runImpactScheduler(ctx context.Context) error {
	s.logger.Printf("Starting impact scheduler (interval: %v)...", s.impactInterval)

	s.runImpactPass(ctx)

	ticker := time.NewTicker(s.impactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runImpactPass(ctx)
		}
	}
}

// runImpactPass refreshes assessments for all tracked changes. Windows that
// come due since the last pass get computed and cached here.
func (s *Server) runImpactPass(ctx context.Context) {
	s.mu.Lock()
	if s.impactRunning {
		s.mu.Unlock()
		s.logger.Println("Impact pass already running, skipping...")
		return
	}
	s.impactRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.impactRunning = false
		s.lastImpactPass = time.Now()
		s.impactPasses++
		s.mu.Unlock()
	}()

	start := time.Now()
	impacts, err := s.tracker.AllChangeImpacts(ctx, 30)
	if err != nil {
		s.logger.Printf("Impact pass error: %v", err)
		return
	}

	pending := 0
	for _, ci := range impacts {
		for _, w := range ci.Windows {
			if w.Status == domain.ImpactPending {
				pending++
				continue
			}
			observability.RecordAssessment(string(w.Assessment.Verdict))
		}
	}
	observability.DefaultMetrics.ChangesTracked.Set(float64(len(impacts)))
	observability.DefaultMetrics.PendingWindows.Set(float64(pending))
	observability.DefaultMetrics.LastSuccessfulImpactPass.SetToCurrentTime()

	// Refresh the predictiveness analysis on the same cadence so the
	// correlation cache stays warm for report builds.
	if analysis, err := s.analyzer.Analyze(ctx, predictive.DefaultAnalysisDays); err != nil {
		if errors.Is(err, predictive.ErrInsufficientData) {
			observability.DefaultMetrics.PredictivenessRuns.WithLabelValues("insufficient_data").Inc()
		} else {
			s.logger.Printf("Predictiveness analysis error: %v", err)
			observability.DefaultMetrics.PredictivenessRuns.WithLabelValues("error").Inc()
		}
	} else {
		observability.DefaultMetrics.PredictivenessRuns.WithLabelValues("success").Inc()
		observability.DefaultMetrics.WeightSuggestionsTotal.Add(float64(len(analysis.Suggestions)))
	}

	// Same for the daily cross-channel sweep; thin data is expected early on.
	if _, err := s.analyzer.CrossChannel(ctx, predictive.DefaultCrossChannelDays); err != nil && !errors.Is(err, predictive.ErrInsufficientData) {
		s.logger.Printf("Cross-channel analysis error: %v", err)
	}

	s.logger.Printf("Impact pass completed in %v: %d changes tracked, %d windows pending",
		time.Since(start), len(impacts), pending)
}

// runOutcomeScheduler runs recommendation outcome checks on schedule.
func (s *Server) runOutcomeScheduler(ctx context.Context) error {
	s.logger.Printf("Starting outcome scheduler (interval: %v)...", s.outcomeCheckInterval)

	s.runOutcomePass(ctx)

	ticker := time.NewTicker(s.outcomeCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOutcomePass(ctx)
		}
	}
}

// runOutcomePass measures acted-upon recommendations that are due a check.
func (s *Server) runOutcomePass(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.lastOutcomePass = time.Now()
		s.outcomePasses++
		s.mu.Unlock()
	}()

	due, err := s.ledger.NeedsOutcomeCheck(ctx, ledger.OutcomeCheckMinDays)
	if err != nil {
		s.logger.Printf("Outcome check error: %v", err)
		return
	}
	observability.DefaultMetrics.OutcomeChecksDue.Set(float64(len(due)))
	if len(due) == 0 {
		return
	}

	// Trailing 7 complete days as the "after" measurement.
	now := time.Now()
	end := now.AddDate(0, 0, -1).Format("2006-01-02")
	begin := now.AddDate(0, 0, -7).Format("2006-01-02")
	period, err := s.tracker.MetricsForPeriod(ctx, begin, end)
	if err != nil {
		s.logger.Printf("Outcome check metrics error: %v", err)
		return
	}
	after := snapshotFromPeriod(period)

	for _, rec := range due {
		daysAfter := int(now.Sub(rec.StatusUpdatedAt).Hours() / 24)
		updated, err := s.ledger.RecordOutcome(ctx, rec.ID, after, daysAfter)
		if err != nil {
			s.logger.Printf("Record outcome %s: %v", rec.ID, err)
			continue
		}
		if updated.Outcome != domain.OutcomePending {
			observability.RecordOutcome(string(updated.Outcome))
			s.logger.Printf("Outcome for %s at day %d: %s", rec.ID, daysAfter, updated.Outcome)
		}
	}
}

// snapshotFromPeriod converts summed period metrics into a point snapshot.
func snapshotFromPeriod(p domain.PeriodMetrics) domain.MetricsSnapshot {
	snap := domain.MetricsSnapshot{
		Revenue: p.Revenue,
		Spend:   p.AdSpend,
		MER:     p.MER,
		NCAC:    p.NCAC,
	}
	if p.Orders > 0 {
		snap.CAMPerOrder = p.CAM / float64(p.Orders)
	}
	return snap
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	LastScoringPass time.Time `json:"last_scoring_pass,omitempty"`
	LastImpactPass  time.Time `json:"last_impact_pass,omitempty"`
	LastOutcomePass time.Time `json:"last_outcome_pass,omitempty"`
	ScoringPasses   int       `json:"scoring_passes"`
	ImpactPasses    int       `json:"impact_passes"`
	OutcomePasses   int       `json:"outcome_passes"`
	ScoringRunning  bool      `json:"scoring_running"`
	ImpactRunning   bool      `json:"impact_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		LastScoringPass: s.lastScoringPass,
		LastImpactPass:  s.lastImpactPass,
		LastOutcomePass: s.lastOutcomePass,
		ScoringPasses:   s.scoringPasses,
		ImpactPasses:    s.impactPasses,
		OutcomePasses:   s.outcomePasses,
		ScoringRunning:  s.scoringRunning,
		ImpactRunning:   s.impactRunning,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
