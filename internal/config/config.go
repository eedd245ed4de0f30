// Package config defines the configuration for the reefcast ingestion
// pipeline. Configuration is loaded once at process initialization (Lambda
// cold start) and is immutable thereafter, following 12-Factor principles.
//
// Values are resolved from the OS environment, with a .env file as a
// non-overriding fallback for local development. Any missing required
// value or invalid format fails the load immediately (fail fast): a run
// that starts without its persistence target or provider endpoints cannot
// possibly succeed for any location.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"reefcast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret
// type used to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration for the ingestion pipeline. It is
// populated once during initialization and never modified. Sub-components
// receive only the subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Database  DatabaseConfig
	Providers ProviderConfig
	Pipeline  PipelineConfig
	Metrics   MetricsConfig
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"4"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"55m"`
}

// ProviderConfig holds the upstream forecast provider endpoints and keys.
// The marine and weather APIs are separate collaborators with separate
// base URLs; the API keys are optional (the public tier needs none).
type ProviderConfig struct {
	MarineBaseURL  string        `envconfig:"MARINE_API_URL" default:"https://marine-api.open-meteo.com/v1/marine" validate:"url"`
	WeatherBaseURL string        `envconfig:"WEATHER_API_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	MarineAPIKey   SecretString  `envconfig:"MARINE_API_KEY"`
	WeatherAPIKey  SecretString  `envconfig:"WEATHER_API_KEY"`
	RequestTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
	UserAgent      string        `envconfig:"PROVIDER_USER_AGENT" default:"reefcast-ingestor/1.0"`
}

// PipelineConfig holds the batching, pacing, and persistence-window
// constants for the ingestion pipeline.
type PipelineConfig struct {
	// HorizonDays is the forecast horizon requested per fetch.
	HorizonDays int `envconfig:"FORECAST_DAYS" default:"7" validate:"min=1,max=16"`

	// GroupSize bounds peak concurrent upstream load: locations are
	// fetched concurrently within a group, groups run sequentially.
	GroupSize int `envconfig:"GROUP_SIZE" default:"15" validate:"min=1"`

	// GroupPause is the pause between groups, respecting upstream rate
	// limits.
	GroupPause time.Duration `envconfig:"GROUP_PAUSE" default:"1s"`

	// CoordTolerance is the +/- degree window used when deleting rows for
	// a location. Stored coordinates may carry representation rounding, so
	// the replace protocol matches by range, not equality.
	CoordTolerance float64 `envconfig:"COORD_TOLERANCE" default:"0.0001"`

	// InsertChunkSize bounds per-request insert payloads. The default is
	// one week of hourly samples.
	InsertChunkSize int `envconfig:"INSERT_CHUNK_SIZE" default:"168" validate:"min=1"`

	// Timezone is the pipeline's local timezone for deriving forecast
	// dates from sample timestamps.
	Timezone string `envconfig:"PIPELINE_TIMEZONE" default:"UTC"`

	// EnableScoring toggles the suitability pass over the scored site set.
	EnableScoring bool `envconfig:"ENABLE_SCORING" default:"true"`
}

// MetricsConfig holds run telemetry settings.
type MetricsConfig struct {
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"Reefcast/Ingestion"`
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads, parses, and validates the configuration.
//
// The sequence is:
//  1. Enforce UTC as the process timezone to prevent drift bugs.
//  2. Load a .env file if present (non-fatal if missing; never overrides
//     existing environment variables).
//  3. Process envconfig tags to populate the struct.
//  4. Validate with go-playground/validator.
//
// Failures are returned as a fatal configuration AppError.
func Load() (*Config, error) {
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigurationMissing,
			"failed to process environment configuration", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigurationMissing,
			"configuration validation failed", err)
	}

	return &cfg, nil
}
