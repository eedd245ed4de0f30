package db

import (
	"context"
	"fmt"

	"reefcast/internal/types"
)

// DDL for the two sample tables. Latitude and longitude use DECIMAL(15,12)
// so configured coordinates round-trip exactly; the replace protocol still
// matches them by tolerance window, never by equality.
const (
	CreatePlainTableSQL = `
CREATE TABLE IF NOT EXISTS weather_forecast (
  id BIGSERIAL PRIMARY KEY,
  forecast_date DATE NOT NULL,
  latitude DECIMAL(15, 12) NOT NULL,
  longitude DECIMAL(15, 12) NOT NULL,
  forecast_timestamp TIMESTAMPTZ NOT NULL,
  wave_height DECIMAL(4, 2),
  wave_period DECIMAL(4, 1),
  wind_speed DECIMAL(5, 1),
  wind_direction DECIMAL(5, 1),
  wind_gusts DECIMAL(5, 1),
  cloud_cover DECIMAL(5, 1),
  temperature DECIMAL(4, 1),
  precipitation_probability DECIMAL(5, 1),
  precipitation_amount DECIMAL(5, 2),
  ocean_current_velocity DECIMAL(4, 2),
  ocean_current_direction DECIMAL(5, 1),
  sea_level_height DECIMAL(5, 2)
);

CREATE INDEX IF NOT EXISTS idx_weather_forecast_lat_lng ON weather_forecast (latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_weather_forecast_date ON weather_forecast (forecast_date);
CREATE INDEX IF NOT EXISTS idx_weather_forecast_ts ON weather_forecast (forecast_timestamp);
`

	CreateScoredTableSQL = `
CREATE TABLE IF NOT EXISTS snorkel_forecast (
  id BIGSERIAL PRIMARY KEY,
  forecast_date DATE NOT NULL,
  latitude DECIMAL(15, 12) NOT NULL,
  longitude DECIMAL(15, 12) NOT NULL,
  forecast_timestamp TIMESTAMPTZ NOT NULL,
  wave_height DECIMAL(4, 2),
  wave_period DECIMAL(4, 1),
  wind_speed DECIMAL(5, 1),
  wind_direction DECIMAL(5, 1),
  wind_gusts DECIMAL(5, 1),
  cloud_cover DECIMAL(5, 1),
  temperature DECIMAL(4, 1),
  precipitation_probability DECIMAL(5, 1),
  precipitation_amount DECIMAL(5, 2),
  ocean_current_velocity DECIMAL(4, 2),
  ocean_current_direction DECIMAL(5, 1),
  sea_level_height DECIMAL(5, 2),
  site_name TEXT NOT NULL,
  region TEXT,
  swell_wave_direction DECIMAL(5, 1),
  suitability_score SMALLINT CHECK (suitability_score BETWEEN 0 AND 100)
);

CREATE INDEX IF NOT EXISTS idx_snorkel_forecast_site ON snorkel_forecast (site_name, forecast_timestamp);
CREATE INDEX IF NOT EXISTS idx_snorkel_forecast_lat_lng ON snorkel_forecast (latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_snorkel_forecast_date ON snorkel_forecast (forecast_date);
`
)

// EnsureSchema applies the table DDL. Statements are idempotent, so the
// bootstrap tool can run against a live database.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range []string{CreatePlainTableSQL, CreateScoredTableSQL} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return types.NewAppError(types.ErrCodeConfigurationMissing,
				"failed to apply schema DDL", err)
		}
	}
	return nil
}

// VerifySchema probes both tables with a count query, confirming they
// exist and are readable with the configured credentials.
func VerifySchema(ctx context.Context, db DBTX) error {
	for _, table := range []string{PlainTable, ScoredTable} {
		var count int64
		if err := db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return types.NewAppError(types.ErrCodeConfigurationMissing,
				fmt.Sprintf("schema probe failed for %s", table), err)
		}
	}
	return nil
}
