package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"reefcast/internal/types"
)

// MetricsRecorder publishes run-level telemetry. Implementations must not
// fail the run: publish errors are logged and swallowed.
type MetricsRecorder interface {
	RecordRun(ctx context.Context, summary types.RunSummary)
}

// ControllerConfig holds the configuration for creating a Controller.
type ControllerConfig struct {
	Ingestor      *Ingestor
	ForecastGrid  []types.Site
	SnorkelSites  []types.Site
	EnableScoring bool
	Metrics       MetricsRecorder
	Logger        *slog.Logger
}

// Controller is the top-level entry point for one scheduled run. It
// invokes the ingestion pipeline once for the plain forecast grid and,
// when scoring is enabled, once more for the scored snorkel sites, then
// merges the two summaries into a single result envelope.
type Controller struct {
	ingestor      *Ingestor
	forecastGrid  []types.Site
	snorkelSites  []types.Site
	enableScoring bool
	metrics       MetricsRecorder
	logger        *slog.Logger
}

// NewController creates a Controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Ingestor == nil {
		return nil, types.NewAppError(types.ErrCodeConfigurationMissing,
			"controller requires an ingestor", nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		ingestor:      cfg.Ingestor,
		forecastGrid:  cfg.ForecastGrid,
		snorkelSites:  cfg.SnorkelSites,
		enableScoring: cfg.EnableScoring,
		metrics:       cfg.Metrics,
		logger:        logger,
	}, nil
}

// Run executes the full scheduled update and always returns a well-formed
// envelope. Per-location failures are already folded into the summary by
// the pipeline; only a panic inside the controller's own aggregation or a
// context-level abort produces a failure envelope.
func (c *Controller) Run(ctx context.Context) (result types.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "run controller panicked", "panic", r)
			result = types.RunResult{
				Success:   false,
				Error:     fmt.Sprintf("run controller panic: %v", r),
				RequestID: types.GetInvocationID(ctx),
			}
		}
	}()

	c.logger.InfoContext(ctx, "starting forecast update",
		"grid_locations", len(c.forecastGrid),
		"snorkel_sites", len(c.snorkelSites),
		"scoring_enabled", c.enableScoring,
	)

	summary, err := c.ingestor.Run(ctx, c.forecastGrid)
	if err != nil {
		return c.failure(ctx, summary, err)
	}

	if c.enableScoring && len(c.snorkelSites) > 0 {
		scoredSummary, err := c.ingestor.Run(ctx, c.snorkelSites)
		summary.Merge(scoredSummary)
		if err != nil {
			return c.failure(ctx, summary, err)
		}
	}

	if c.metrics != nil {
		c.metrics.RecordRun(ctx, summary)
	}

	c.logger.InfoContext(ctx, "forecast update complete",
		"locations_updated", summary.LocationsUpdated,
		"locations_failed", summary.LocationsFailed,
		"api_calls", summary.APICalls,
		"execution_seconds", summary.ExecutionTimeSeconds,
	)

	return types.RunResult{
		Success:   true,
		Summary:   &summary,
		RequestID: types.GetInvocationID(ctx),
	}
}

// failure builds the failure envelope for a run-level abort. The partial
// summary is included so the scheduler still sees what was accomplished
// before the abort.
func (c *Controller) failure(ctx context.Context, summary types.RunSummary, err error) types.RunResult {
	c.logger.ErrorContext(ctx, "forecast update aborted", "error", err)
	return types.RunResult{
		Success:   false,
		Summary:   &summary,
		Error:     err.Error(),
		RequestID: types.GetInvocationID(ctx),
	}
}
