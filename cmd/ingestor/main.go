// Package main is the entrypoint for the forecast ingestor Lambda
// function.
//
// The ingestor runs on an EventBridge schedule. Each invocation fetches
// marine and atmospheric forecasts for every monitored location around
// Puerto Rico, scores the snorkel sites for suitability, and replaces
// the overlapping windows in the database.
//
// This file handles dependency wiring (cold start) and delegates all
// business logic to the internal/pipeline package.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reefcast/internal/config"
	"reefcast/internal/db"
	"reefcast/internal/metrics"
	"reefcast/internal/openmeteo"
	"reefcast/internal/pipeline"
	"reefcast/internal/scoring"
	"reefcast/internal/sites"
	"reefcast/internal/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("ingestor Lambda initializing (cold start)")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	tz, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		logger.Error("invalid pipeline timezone", "timezone", cfg.Pipeline.Timezone, "error", err)
		os.Exit(1)
	}

	// Catalog defects are deployment errors. A grid with two entries
	// inside the coordinate tolerance would let concurrent locations
	// delete each other's rows, so refuse to start.
	for name, set := range map[string][]types.Site{
		"forecast_grid": sites.ForecastGrid(),
		"snorkel_sites": sites.SnorkelSites(),
	} {
		if err := sites.Validate(set, cfg.Pipeline.CoordTolerance); err != nil {
			logger.Error("site catalog validation failed", "catalog", name, "error", err)
			os.Exit(1)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	var recorder pipeline.MetricsRecorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled && cfg.Environment != "local" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		recorder = metrics.NewCloudWatchRecorder(
			cloudwatch.NewFromConfig(awsCfg), cfg.Metrics.Namespace, logger)
	}

	httpClient := &http.Client{Timeout: cfg.Providers.RequestTimeout}
	client := openmeteo.NewClient(httpClient, "open-meteo",
		openmeteo.DefaultRetryPolicy(), cfg.Providers.UserAgent)

	adapter := openmeteo.NewAdapter(openmeteo.AdapterConfig{
		Client:         client,
		MarineBaseURL:  cfg.Providers.MarineBaseURL,
		WeatherBaseURL: cfg.Providers.WeatherBaseURL,
		MarineAPIKey:   cfg.Providers.MarineAPIKey,
		WeatherAPIKey:  cfg.Providers.WeatherAPIKey,
		Timezone:       tz,
		Logger:         logger,
	})

	repo := db.NewForecastRepository(pool,
		cfg.Pipeline.InsertChunkSize, cfg.Pipeline.CoordTolerance)

	deps := handlerDeps{
		cfg:      cfg,
		fetcher:  adapter,
		store:    repo,
		recorder: recorder,
		logger:   logger,
	}

	logger.Info("ingestor Lambda initialized",
		"environment", cfg.Environment,
		"marine_api", cfg.Providers.MarineBaseURL,
		"weather_api", cfg.Providers.WeatherBaseURL,
		"horizon_days", cfg.Pipeline.HorizonDays,
		"group_size", cfg.Pipeline.GroupSize,
		"scoring_enabled", cfg.Pipeline.EnableScoring,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	lambda.Start(newHandler(deps))
}

// HandlerInput carries the optional per-invocation overrides accepted on
// the scheduled event. Zero values mean "use the configured default", so
// the normal EventBridge payload is just {}.
type HandlerInput struct {
	// HorizonDays overrides the forecast horizon for this run.
	HorizonDays int `json:"horizonDays,omitempty"`

	// GroupSize overrides the concurrent group width for this run.
	GroupSize int `json:"groupSize,omitempty"`

	// SkipScoring skips the snorkel-site scoring pass. Used to shorten a
	// manual backfill run.
	SkipScoring bool `json:"skipScoring,omitempty"`
}

// handlerDeps holds the long-lived collaborators built once at cold
// start. Ingestor and Controller are plain structs over these, so the
// handler rebuilds them per invocation to honor input overrides.
type handlerDeps struct {
	cfg      *config.Config
	fetcher  pipeline.Fetcher
	store    pipeline.Store
	recorder pipeline.MetricsRecorder
	logger   *slog.Logger
}

// newHandler creates the Lambda handler. The handler never returns an
// error for a failed run: the envelope carries success or failure, and
// surfacing an error to the runtime would only trigger a redundant
// retry of an already-idempotent pipeline.
func newHandler(deps handlerDeps) func(ctx context.Context, input HandlerInput) (types.RunResult, error) {
	return func(ctx context.Context, input HandlerInput) (types.RunResult, error) {
		requestID := uuid.NewString()
		if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
			requestID = lc.AwsRequestID
		}
		ctx = types.WithInvocationID(ctx, requestID)

		deps.logger.InfoContext(ctx, "ingestor handler invoked",
			"request_id", requestID,
			"horizon_days_override", input.HorizonDays,
			"group_size_override", input.GroupSize,
			"skip_scoring", input.SkipScoring,
		)

		controller, err := buildController(deps, input)
		if err != nil {
			deps.logger.ErrorContext(ctx, "failed to build run controller", "error", err)
			return types.RunResult{
				Success:   false,
				Error:     err.Error(),
				RequestID: requestID,
			}, nil
		}

		result := controller.Run(ctx)
		return result, nil
	}
}

// buildController assembles the pipeline for one invocation, applying
// any input overrides on top of the configured defaults.
func buildController(deps handlerDeps, input HandlerInput) (*pipeline.Controller, error) {
	pipeCfg := deps.cfg.Pipeline

	horizon := pipeCfg.HorizonDays
	if input.HorizonDays > 0 {
		horizon = input.HorizonDays
	}
	groupSize := pipeCfg.GroupSize
	if input.GroupSize > 0 {
		groupSize = input.GroupSize
	}

	ingestor, err := pipeline.NewIngestor(pipeline.IngestorConfig{
		Fetcher:     deps.fetcher,
		Store:       deps.store,
		Scorer:      scoring.Score,
		HorizonDays: horizon,
		GroupSize:   groupSize,
		GroupPause:  pipeCfg.GroupPause,
		Logger:      deps.logger,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.NewController(pipeline.ControllerConfig{
		Ingestor:      ingestor,
		ForecastGrid:  sites.ForecastGrid(),
		SnorkelSites:  sites.SnorkelSites(),
		EnableScoring: pipeCfg.EnableScoring && !input.SkipScoring,
		Metrics:       deps.recorder,
		Logger:        deps.logger,
	})
}

// parseLogLevel maps the configured level name to a slog.Level,
// defaulting to info for unknown values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
