package main

import (
	"strings"
	"time"

	"github.com/brandsignal/compass/internal/analysis"
	"github.com/brandsignal/compass/internal/brief"
	"github.com/brandsignal/compass/internal/clients/lunarcrush"
	"github.com/brandsignal/compass/internal/config"
	"github.com/brandsignal/compass/internal/database"
	"github.com/brandsignal/compass/internal/engine"
	"github.com/brandsignal/compass/internal/handlers"
	"github.com/brandsignal/compass/internal/llm"
	"github.com/brandsignal/compass/internal/logging"
	"github.com/brandsignal/compass/internal/metrics"
	"github.com/brandsignal/compass/internal/monitoring"
	"github.com/brandsignal/compass/internal/server"
	"github.com/brandsignal/compass/internal/store"
	"github.com/brandsignal/compass/internal/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("compass")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Compass (Marketing Decision Engine)")

	// Postgres holds campaign logs, tasks, snapshots and briefs.
	// ClickHouse holds the scraper-written content log and wallet activity.
	dbURL := config.RequireEnv("DATABASE_URL")
	clickhouseHost := config.RequireEnv("CLICKHOUSE_HOST")
	clickhouseDB := config.RequireEnv("CLICKHOUSE_DB")
	clickhouseUser := config.RequireEnv("CLICKHOUSE_USER")
	clickhousePassword := config.RequireEnv("CLICKHOUSE_PASSWORD")
	serviceToken := config.RequireEnv("SERVICE_TOKEN")

	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	pgDB := database.MustConnect(dbConfig, logger)
	defer func() { _ = pgDB.Close() }()

	chConfig := database.DefaultClickHouseConfig()
	chConfig.Addr = []string{clickhouseHost}
	chConfig.Database = clickhouseDB
	chConfig.Username = clickhouseUser
	chConfig.Password = clickhousePassword
	chConfig.Debug = config.GetEnvBool("CLICKHOUSE_DEBUG", false)
	clickhouse := database.MustConnectClickHouse(chConfig, logger)
	defer func() { _ = clickhouse.Close() }()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("compass", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("compass", version.Version, version.GitCommit)

	healthChecker.AddCheck("postgres", monitoring.DatabaseHealthCheck(pgDB))
	healthChecker.AddCheck("clickhouse", monitoring.DatabaseHealthCheck(clickhouse))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":    dbURL,
		"CLICKHOUSE_HOST": clickhouseHost,
		"CLICKHOUSE_DB":   clickhouseDB,
		"SERVICE_TOKEN":   serviceToken,
	}))

	serviceMetrics := &metrics.Metrics{
		AnalysisRuns:      metricsCollector.NewCounter("analysis_runs_total", "Analysis runs executed", []string{"status"}),
		AnalysisDuration:  metricsCollector.NewHistogram("analysis_run_duration_seconds", "Analysis run duration", []string{"brand_id"}, nil),
		TasksGenerated:    metricsCollector.NewCounter("tasks_generated_total", "Strategy tasks generated", []string{"brand_id"}),
		TaskTransitions:   metricsCollector.NewCounter("task_transitions_total", "Task state transitions applied", []string{"status"}),
		TrendFetches:      metricsCollector.NewCounter("trend_fetches_total", "Trend feed fetches", []string{"status"}),
		BriefGenerations:  metricsCollector.NewCounter("brief_generations_total", "Daily briefs generated", []string{"status"}),
		PostgresQueries:   metricsCollector.NewCounter("postgres_queries_total", "Postgres queries executed", []string{"table", "status"}),
		ClickHouseQueries: metricsCollector.NewCounter("clickhouse_queries_total", "ClickHouse queries executed", []string{"table", "status"}),
		DBDuration:        metricsCollector.NewHistogram("db_query_duration_seconds", "Database query duration", []string{"database"}, nil),
	}

	pgStore := store.New(pgDB).WithMetrics(serviceMetrics)
	contentLog := store.NewContentLog(clickhouse).WithMetrics(serviceMetrics)

	// Trend feed client (optional: without an API key the runner degrades
	// to empty signal lists)
	var trendSource analysis.TrendSource
	if apiKey := config.GetEnv("LUNARCRUSH_API_KEY", ""); apiKey != "" {
		baseURL := config.GetEnv("LUNARCRUSH_API_URL", "https://lunarcrush.com")
		trendSource = lunarcrush.NewClient(baseURL, apiKey)
	} else {
		logger.Warn("LUNARCRUSH_API_KEY not set, trend signals disabled")
	}

	// LLM provider for the daily brief (optional)
	llmConfig := llm.LoadConfig()
	var provider llm.Provider
	if llmConfig.APIKey != "" || llmConfig.Provider == "ollama" {
		var err error
		provider, err = llm.NewProvider(llmConfig)
		if err != nil {
			logger.WithError(err).Warn("LLM provider unavailable, briefs degrade to context digests")
			provider = nil
		}
	} else {
		logger.Warn("LLM_API_KEY not set, briefs degrade to context digests")
	}
	composer := brief.NewComposer(provider, llmConfig.Model, logger)

	runner := analysis.NewRunner(analysis.Config{
		Store:         pgStore,
		ContentLog:    contentLog,
		Trends:        trendSource,
		Logger:        logger,
		Metrics:       serviceMetrics,
		Thresholds:    engine.DefaultThresholds(),
		TrendCategory: config.GetEnv("TREND_CATEGORY", "cryptocurrencies"),
		TrendLimit:    config.GetEnvInt("TREND_LIMIT", 20),
	})

	// Scheduled runs for the configured brands; manual runs stay available
	// through the API regardless
	brands := splitBrands(config.GetEnv("BRAND_IDS", ""))
	interval := time.Duration(config.GetEnvInt("ANALYSIS_INTERVAL_MINUTES", 120)) * time.Minute
	if len(brands) > 0 {
		scheduler := analysis.NewScheduler(runner, brands, interval, logger)
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		logger.Warn("BRAND_IDS not set, scheduled analysis disabled")
	}

	// Initialize handlers
	handlers.Init(pgStore, contentLog, runner, composer, logger, serviceMetrics)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "compass", healthChecker, metricsCollector)
	handlers.RegisterRoutes(router, serviceToken)

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("compass", "18090")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

func splitBrands(raw string) []string {
	var brands []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brands = append(brands, trimmed)
		}
	}
	return brands
}
