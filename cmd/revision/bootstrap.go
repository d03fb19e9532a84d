package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"estimate-revision-model/internal/api"
	"estimate-revision-model/internal/datasource/fmp"
	"estimate-revision-model/internal/datasource/mock"
	"estimate-revision-model/internal/estimatelog"
	"estimate-revision-model/internal/interfaces"
	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/metrics"
	"estimate-revision-model/internal/report"
	"estimate-revision-model/internal/research/revision"
	"estimate-revision-model/internal/research/revision/revisionobs"
	"estimate-revision-model/internal/store"
	"estimate-revision-model/internal/trace"
	"estimate-revision-model/internal/universe"
)

// app holds everything a command needs after bootstrap
type app struct {
	cfg    *store.Config
	finder interfaces.CandidateFinder
}

// initializeSystem loads .env and config, then starts logging and tracing.
// A missing API key for the live source is fatal before any work starts.
func initializeSystem(ctx context.Context, configPath string) (*app, error) {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logCfg := logger.LoadConfigFromEnv()
	if logCfg.FilePath == "" {
		logCfg.FilePath = cfg.LogFilePath()
	}
	if err := logger.InitWithConfig(logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	source, err := initializeDataSource(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize data source", err)
		return nil, err
	}

	finder, err := initializeFinder(cfg, source)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize candidate finder", err)
		return nil, err
	}

	logger.Info(ctx, "System initialized",
		"config", configPath,
		"data_source", cfg.Provider.DataSource,
		"index", cfg.Universe.Index,
		"static_symbols", len(cfg.Universe.Static))

	return &app{cfg: cfg, finder: finder}, nil
}

// initializeDataSource returns the live FMP client or the offline mock
func initializeDataSource(ctx context.Context, cfg *store.Config) (revision.DataSource, error) {
	if cfg.Provider.DataSource == "MOCK" {
		logger.Warn(ctx, "Using mock data source, results are synthetic")
		return mock.NewSource(), nil
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(
		api.WithBaseURL(cfg.Provider.BaseURL),
		api.WithTimeout(time.Duration(cfg.Provider.TimeoutSeconds)*time.Second),
		api.WithRateLimit(cfg.Provider.RequestsPerSecond),
		api.WithCircuitBreaker(uint32(cfg.Provider.BreakerFailures)),
		api.WithLogger(logger.Default()),
	)
	return fmp.NewClient(client, apiKey), nil
}

// initializeFinder wires universe, logs, output and metrics into an observable finder
func initializeFinder(cfg *store.Config, source revision.DataSource) (interfaces.CandidateFinder, error) {
	log := logger.Default()

	univ := universe.NewProvider(cfg.Universe.Index,
		universe.WithStatic(cfg.Universe.Static),
		universe.WithCache(cfg.UniverseCachePath(), cfg.Universe.UseCache),
		universe.WithLogger(log),
	)

	logs := estimatelog.New(cfg.QuarterlyEstimatesPath(), cfg.AnnualEstimatesPath())
	writer := report.NewWriter(cfg.Paths.ResultsDir, cfg.Files.Candidates, cfg.Files.DatedResultFile, cfg.SurpriseResultsPath())
	recorder := metrics.NewRecorder(cfg.Files.MetricsTextfile)

	finderCfg := revision.FinderConfig{
		Weights:            revision.Weights(cfg.Weights),
		Limit:              cfg.Provider.Limit,
		SurpriseWindowDays: cfg.Analysis.SurpriseWindowDays,
		Analyzer: revision.AnalyzerConfig{
			UpsideWindowDays:    cfg.Analysis.UpsideWindowDays,
			MagnitudeWindowDays: cfg.Analysis.MagnitudeWindowDays,
		},
	}

	finder, err := revision.NewFinder(univ, source, logs, finderCfg,
		revision.WithLogger(log),
		revision.WithOutput(writer),
		revision.WithRecorder(recorder),
	)
	if err != nil {
		return nil, err
	}
	return revisionobs.Wrap(finder), nil
}

// shutdown flushes traces and logs
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown tracer: %v\n", err)
	}
	_ = logger.Sync()
}
