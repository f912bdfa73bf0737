package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"marketing-signal-lab/internal/domain"
	"marketing-signal-lab/internal/impact"
	"marketing-signal-lab/internal/ledger"
	"marketing-signal-lab/internal/predictive"
	"marketing-signal-lab/internal/reporting"
	"marketing-signal-lab/internal/scoring"
	chstore "marketing-signal-lab/internal/storage/clickhouse"
	"marketing-signal-lab/internal/storage/migrations"
	pgstore "marketing-signal-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	// Parse flags
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	platforms := flag.String("platforms", "meta,google,tiktok", "Comma-separated ad platforms to include")
	out := flag.String("out", "", "Output file path (default: stdout)")
	flag.Parse()

	ctx := context.Background()

	// Validate flags
	if *postgresDSN == "" || *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required")
		os.Exit(1)
	}

	platformList := parsePlatforms(*platforms)
	if len(platformList) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no recognized platforms in --platforms")
		os.Exit(1)
	}

	// Connect to PostgreSQL
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error running postgres migrations: %v\n", err)
		os.Exit(1)
	}

	// Connect to ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer chConn.Close()

	// ClickHouse stores (time series and rollups)
	metricsStore := chstore.NewDailyMetricsStore(chConn)
	campaignStore := chstore.NewCampaignStore(chConn)
	adsetStore := chstore.NewAdSetStore(chConn)

	// Postgres stores (change log, ledger, weights, derived caches)
	changeStore := pgstore.NewChangeEventStore(pool)
	recStore := pgstore.NewRecommendationStore(pool)
	assessmentStore := pgstore.NewAssessmentStore(pool)
	correlationStore := pgstore.NewCorrelationStore(pool)
	weightStore := pgstore.NewWeightStore(pool)

	// Assemble the builder. A one-shot run gains nothing from memoization,
	// so the section cache is disabled.
	builder := reporting.NewBuilder(
		scoring.NewScorer(campaignStore, adsetStore, weightStore, nil),
		impact.NewTracker(metricsStore, changeStore, assessmentStore, weightStore, nil, nil),
		predictive.NewAnalyzer(metricsStore, correlationStore, weightStore, nil, nil),
		ledger.New(recStore, nil, nil),
		nil,
		nil,
		nil,
	)

	report := builder.Build(ctx, platformList)
	md := report.Markdown()

	if *out == "" {
		fmt.Print(md)
		return
	}

	if err := os.WriteFile(*out, []byte(md), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report written to %s\n", *out)
}

// parsePlatforms maps the comma-separated flag to known platforms.
func parsePlatforms(s string) []domain.Platform {
	known := map[string]domain.Platform{
		"meta":     domain.PlatformMeta,
		"facebook": domain.PlatformMeta,
		"google":   domain.PlatformGoogle,
		"tiktok":   domain.PlatformTikTok,
	}

	seen := make(map[domain.Platform]bool)
	var list []domain.Platform
	for _, part := range strings.Split(s, ",") {
		p, ok := known[strings.TrimSpace(strings.ToLower(part))]
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		list = append(list, p)
	}
	return list
}
