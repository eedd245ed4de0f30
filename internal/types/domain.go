// Package types defines the core domain model for the reefcast ingestion
// pipeline: monitored locations, hourly forecast samples, fetch batches,
// and the run summary envelope returned to the scheduler.
package types

import (
	"fmt"
	"time"
)

// Location identifies a monitored geographic point. Coordinates are
// high-precision decimal degrees and must round-trip exactly through
// storage; comparisons against stored rows always go through a tolerance
// window, never float equality.
type Location struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Name   string  `json:"name,omitempty"`
	Region string  `json:"region,omitempty"`
}

// Key returns a stable human-readable identifier for logging.
func (l Location) Key() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lng)
}

// WithinTolerance reports whether two coordinate pairs refer to the same
// monitored point, allowing for representation rounding in storage.
func WithinTolerance(a, b Location, epsilon float64) bool {
	return absF(a.Lat-b.Lat) <= epsilon && absF(a.Lng-b.Lng) <= epsilon
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Site is a Location plus its pipeline profile. Scored sites additionally
// run the suitability engine and persist into the scored table.
type Site struct {
	Location
	Scored bool `json:"scored"`
}

// ForecastSample is one hourly observation for one location. Every
// meteorological variable is optional: an upstream provider may omit any
// of them, and absence is represented as nil rather than zero.
type ForecastSample struct {
	Location     Location  `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	ForecastDate string    `json:"forecast_date"` // YYYY-MM-DD in the pipeline timezone

	WaveHeight           *float64 `json:"wave_height,omitempty"`
	WavePeriod           *float64 `json:"wave_period,omitempty"`
	SwellWaveDirection   *float64 `json:"swell_wave_direction,omitempty"`
	WindSpeed            *float64 `json:"wind_speed,omitempty"`
	WindDirection        *float64 `json:"wind_direction,omitempty"`
	WindGusts            *float64 `json:"wind_gusts,omitempty"`
	CloudCover           *float64 `json:"cloud_cover,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	PrecipProbability    *float64 `json:"precipitation_probability,omitempty"`
	PrecipAmount         *float64 `json:"precipitation_amount,omitempty"`
	OceanCurrentVelocity *float64 `json:"ocean_current_velocity,omitempty"`
	OceanCurrentDir      *float64 `json:"ocean_current_direction,omitempty"`
	SeaLevelHeight       *float64 `json:"sea_level_height,omitempty"`

	// SuitabilityScore is set only on samples produced for a scored site.
	SuitabilityScore *int `json:"suitability_score,omitempty"`
}

// ForecastBatch is an ordered sequence of samples for one location spanning
// one fetch horizon (7 days of hourly data is up to 168 samples). Batches
// are transient: created by the provider adapter, consumed by the pipeline,
// never stored as an entity.
type ForecastBatch struct {
	Location Location
	Samples  []ForecastSample
}

// Window returns the inclusive [first, last] timestamp range covered by
// the batch. ok is false for an empty batch.
func (b *ForecastBatch) Window() (first, last time.Time, ok bool) {
	if len(b.Samples) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return b.Samples[0].Timestamp, b.Samples[len(b.Samples)-1].Timestamp, true
}

// RunSummary aggregates the outcome of one pipeline run. Counters are
// totals across every processed site; the Scored* counters track the
// scored subset separately and stay zero when scoring is disabled.
type RunSummary struct {
	LocationsUpdated     int     `json:"locationsUpdated"`
	LocationsFailed      int     `json:"locationsFailed"`
	APICalls             int     `json:"apiCalls"`
	ExecutionTimeSeconds float64 `json:"executionTimeSeconds"`
	ScoredUpdated        int     `json:"scoredUpdated,omitempty"`
	ScoredFailed         int     `json:"scoredFailed,omitempty"`
}

// Merge adds another summary's counters into this one. Execution time is
// summed because the controller runs its site sets sequentially.
func (s *RunSummary) Merge(other RunSummary) {
	s.LocationsUpdated += other.LocationsUpdated
	s.LocationsFailed += other.LocationsFailed
	s.APICalls += other.APICalls
	s.ExecutionTimeSeconds += other.ExecutionTimeSeconds
	s.ScoredUpdated += other.ScoredUpdated
	s.ScoredFailed += other.ScoredFailed
}

// RunResult is the envelope handed back to the invoking scheduler. It
// always has a defined shape: either Success with a Summary, or a failure
// with Error set. Per-location failures never produce a failure envelope;
// only a configuration fault or an error inside the run controller itself
// does.
type RunResult struct {
	Success   bool        `json:"success"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}
