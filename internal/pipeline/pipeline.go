// Package pipeline implements the batched ingestion pipeline and its run
// controller. One run fetches forecast data for every configured site,
// scores the scored subset, and replaces the overlapping stored windows,
// then reports an aggregate summary to the scheduler.
//
// Concurrency model: locations are partitioned into fixed-size groups.
// All locations within a group are fetched and processed concurrently;
// groups run sequentially with a pause between them to respect upstream
// rate limits. Peak concurrent upstream load is therefore bounded by one
// group's width. Per-location failures are isolated into counters and
// never abort the group or the run.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reefcast/internal/openmeteo"
	"reefcast/internal/types"
)

// Fetcher abstracts the provider adapter.
type Fetcher interface {
	Fetch(ctx context.Context, loc types.Location, horizonDays int) (*types.ForecastBatch, error)
}

// Store abstracts the persistence port's replace-then-insert protocol.
type Store interface {
	ReplaceWindow(ctx context.Context, batch *types.ForecastBatch, scored bool) (int, error)
}

// Scorer computes a suitability score for one sample. It must be pure.
type Scorer func(*types.ForecastSample) int

// IngestorConfig holds the configuration for creating an Ingestor.
type IngestorConfig struct {
	Fetcher     Fetcher
	Store       Store
	Scorer      Scorer
	HorizonDays int
	GroupSize   int
	GroupPause  time.Duration
	Logger      *slog.Logger
	Clock       types.Clock

	// SleepFn overrides the inter-group pause for tests.
	SleepFn func(time.Duration)
}

// Ingestor runs the batched ingestion pipeline over a site set.
type Ingestor struct {
	fetcher     Fetcher
	store       Store
	scorer      Scorer
	horizonDays int
	groupSize   int
	groupPause  time.Duration
	logger      *slog.Logger
	clock       types.Clock
	sleepFn     func(time.Duration)
}

// NewIngestor creates an Ingestor. Fetcher and Store are required
// external collaborators: without either, no location can possibly
// succeed, so their absence is a fatal configuration error rather than
// something to discover one location at a time.
func NewIngestor(cfg IngestorConfig) (*Ingestor, error) {
	if cfg.Fetcher == nil {
		return nil, types.NewAppError(types.ErrCodeConfigurationMissing,
			"ingestor requires a provider fetcher", nil)
	}
	if cfg.Store == nil {
		return nil, types.NewAppError(types.ErrCodeConfigurationMissing,
			"ingestor requires a persistence store", nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	sleepFn := cfg.SleepFn
	if sleepFn == nil {
		sleepFn = time.Sleep
	}

	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 7
	}
	groupSize := cfg.GroupSize
	if groupSize <= 0 {
		groupSize = 15
	}

	return &Ingestor{
		fetcher:     cfg.Fetcher,
		store:       cfg.Store,
		scorer:      cfg.Scorer,
		horizonDays: horizon,
		groupSize:   groupSize,
		groupPause:  cfg.GroupPause,
		logger:      logger,
		clock:       clock,
		sleepFn:     sleepFn,
	}, nil
}

// Run processes every site in the set and returns the aggregated summary.
// It never returns an error for individual site failures; those are
// counted and logged. The returned error is reserved for context
// cancellation between groups.
func (in *Ingestor) Run(ctx context.Context, sites []types.Site) (types.RunSummary, error) {
	start := in.clock.Now()

	var mu sync.Mutex
	var summary types.RunSummary

	groups := partition(sites, in.groupSize)
	for gi, group := range groups {
		if err := ctx.Err(); err != nil {
			summary.ExecutionTimeSeconds = in.clock.Now().Sub(start).Seconds()
			return summary, err
		}

		g, gCtx := errgroup.WithContext(ctx)
		for _, site := range group {
			site := site
			g.Go(func() error {
				in.processSite(gCtx, site, &mu, &summary)
				// Site failures are isolated; never poison the group.
				return nil
			})
		}
		_ = g.Wait()

		if gi < len(groups)-1 && in.groupPause > 0 {
			in.sleepFn(in.groupPause)
		}
	}

	summary.ExecutionTimeSeconds = in.clock.Now().Sub(start).Seconds()

	in.logger.InfoContext(ctx, "ingestion run complete",
		"locations_updated", summary.LocationsUpdated,
		"locations_failed", summary.LocationsFailed,
		"api_calls", summary.APICalls,
		"execution_seconds", summary.ExecutionTimeSeconds,
	)

	return summary, nil
}

// processSite runs the full per-location sequence: fetch, build samples,
// optionally score, then replace the stored window. Outcomes land in the
// shared summary under the mutex.
func (in *Ingestor) processSite(ctx context.Context, site types.Site, mu *sync.Mutex, summary *types.RunSummary) {
	batch, err := in.fetcher.Fetch(ctx, site.Location, in.horizonDays)

	mu.Lock()
	summary.APICalls += openmeteo.CallsPerFetch
	mu.Unlock()

	if err != nil {
		in.logger.ErrorContext(ctx, "forecast fetch failed",
			"location", site.Key(),
			"lat", site.Lat,
			"lng", site.Lng,
			"error", err,
		)
		in.recordFailure(mu, summary, site)
		return
	}

	if site.Scored && in.scorer != nil {
		for i := range batch.Samples {
			score := in.scorer(&batch.Samples[i])
			batch.Samples[i].SuitabilityScore = &score
		}
	}

	inserted, err := in.store.ReplaceWindow(ctx, batch, site.Scored)
	if err != nil {
		in.logger.ErrorContext(ctx, "persistence failed",
			"location", site.Key(),
			"lat", site.Lat,
			"lng", site.Lng,
			"error", err,
		)
		in.recordFailure(mu, summary, site)
		return
	}

	in.logger.InfoContext(ctx, "location updated",
		"location", site.Key(),
		"samples", inserted,
		"scored", site.Scored,
	)

	mu.Lock()
	summary.LocationsUpdated++
	if site.Scored {
		summary.ScoredUpdated++
	}
	mu.Unlock()
}

func (in *Ingestor) recordFailure(mu *sync.Mutex, summary *types.RunSummary, site types.Site) {
	mu.Lock()
	summary.LocationsFailed++
	if site.Scored {
		summary.ScoredFailed++
	}
	mu.Unlock()
}

// partition splits sites into groups of at most size.
func partition(sites []types.Site, size int) [][]types.Site {
	if len(sites) == 0 {
		return nil
	}
	groups := make([][]types.Site, 0, (len(sites)+size-1)/size)
	for start := 0; start < len(sites); start += size {
		end := start + size
		if end > len(sites) {
			end = len(sites)
		}
		groups = append(groups, sites[start:end])
	}
	return groups
}
