package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reefcast/internal/types"
)

// Table names for the two sample stores. The plain table is keyed
// conceptually by (latitude, longitude, timestamp); the scored table is
// additionally keyed by site name and carries the suitability score plus
// the swell direction it was computed from.
const (
	PlainTable  = "weather_forecast"
	ScoredTable = "snorkel_forecast"
)

// plainColumns is the shared column set for both tables.
var plainColumns = []string{
	"forecast_date",
	"latitude",
	"longitude",
	"forecast_timestamp",
	"wave_height",
	"wave_period",
	"wind_speed",
	"wind_direction",
	"wind_gusts",
	"cloud_cover",
	"temperature",
	"precipitation_probability",
	"precipitation_amount",
	"ocean_current_velocity",
	"ocean_current_direction",
	"sea_level_height",
}

// scoredColumns extends plainColumns for the scored table.
var scoredColumns = append(append([]string{}, plainColumns...),
	"site_name",
	"region",
	"swell_wave_direction",
	"suitability_score",
)

// ForecastRepository implements the replace-then-insert protocol for one
// location's batch against either sample table.
type ForecastRepository struct {
	db        DB
	chunkSize int
	tolerance float64
}

// NewForecastRepository creates a repository.
//
// chunkSize bounds per-statement insert payloads (one week of hourly data
// by default). tolerance is the +/- degree window used when matching
// stored coordinates: floating point representation may shift a stored
// coordinate slightly, so deletion matches by range rather than equality.
func NewForecastRepository(db DB, chunkSize int, tolerance float64) *ForecastRepository {
	return &ForecastRepository{
		db:        db,
		chunkSize: chunkSize,
		tolerance: tolerance,
	}
}

// ReplaceWindow atomically replaces all stored samples for the batch's
// location and time window, then inserts the batch in chunks. Delete and
// insert run in a single transaction per location batch, so a crash
// mid-replace never loses a window that was previously stored.
//
// Re-running with identical data is idempotent: the delete removes
// everything the previous run inserted for the same window before the new
// rows land. scored selects the target table and column set. Returns the
// number of rows inserted.
func (r *ForecastRepository) ReplaceWindow(ctx context.Context, batch *types.ForecastBatch, scored bool) (int, error) {
	first, last, ok := batch.Window()
	if !ok {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodePersistenceDelete,
			"failed to begin replace transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := r.deleteWindow(ctx, tx, batch.Location, scored, first, last); err != nil {
		return 0, err
	}

	inserted := 0
	for offset := 0; offset < len(batch.Samples); offset += r.chunkSize {
		end := offset + r.chunkSize
		if end > len(batch.Samples) {
			end = len(batch.Samples)
		}
		chunk := batch.Samples[offset:end]

		if err := r.insertChunk(ctx, tx, chunk, scored); err != nil {
			// The transaction rolls back: previously inserted chunks of
			// this batch are discarded along with the delete, leaving the
			// prior window intact.
			if appErr, ok := err.(*types.AppError); ok {
				return 0, appErr.WithDetails(map[string]any{
					"location":     batch.Location.Key(),
					"chunk_offset": offset,
					"chunk_size":   len(chunk),
					"inserted":     inserted,
				})
			}
			return 0, err
		}
		inserted += len(chunk)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, types.NewAppError(types.ErrCodePersistenceInsert,
			"failed to commit replace transaction", err)
	}

	return inserted, nil
}

// deleteWindow removes stored samples whose coordinates fall within the
// tolerance window of the location and whose timestamp falls within
// [first, last] inclusive.
func (r *ForecastRepository) deleteWindow(ctx context.Context, q DBTX, loc types.Location, scored bool, first, last time.Time) (int64, error) {
	table := PlainTable
	if scored {
		table = ScoredTable
	}

	tag, err := q.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s
		 WHERE latitude BETWEEN $1 AND $2
		   AND longitude BETWEEN $3 AND $4
		   AND forecast_timestamp BETWEEN $5 AND $6`, table),
		loc.Lat-r.tolerance, loc.Lat+r.tolerance,
		loc.Lng-r.tolerance, loc.Lng+r.tolerance,
		first, last,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodePersistenceDelete,
			fmt.Sprintf("failed to delete overlapping window from %s", table), err).
			WithDetails(map[string]any{"location": loc.Key()})
	}
	return tag.RowsAffected(), nil
}

// insertChunk inserts one bounded chunk of samples with a single
// multi-row INSERT statement.
func (r *ForecastRepository) insertChunk(ctx context.Context, q DBTX, chunk []types.ForecastSample, scored bool) error {
	table := PlainTable
	columns := plainColumns
	if scored {
		table = ScoredTable
		columns = scoredColumns
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(chunk)*len(columns))
	for i, s := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+j+1)
		}
		sb.WriteString(")")

		args = append(args,
			s.ForecastDate,
			s.Location.Lat,
			s.Location.Lng,
			s.Timestamp,
			s.WaveHeight,
			s.WavePeriod,
			s.WindSpeed,
			s.WindDirection,
			s.WindGusts,
			s.CloudCover,
			s.Temperature,
			s.PrecipProbability,
			s.PrecipAmount,
			s.OceanCurrentVelocity,
			s.OceanCurrentDir,
			s.SeaLevelHeight,
		)
		if scored {
			args = append(args,
				s.Location.Name,
				s.Location.Region,
				s.SwellWaveDirection,
				s.SuitabilityScore,
			)
		}
	}

	if _, err := q.Exec(ctx, sb.String(), args...); err != nil {
		return types.NewAppError(types.ErrCodePersistenceInsert,
			fmt.Sprintf("failed to insert sample chunk into %s", table), err)
	}
	return nil
}

// CountSamples returns the total number of rows in the given table. Used
// by the run log to report dataset size before and after an update.
func (r *ForecastRepository) CountSamples(ctx context.Context, table string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodePersistenceInsert,
			fmt.Sprintf("failed to count rows in %s", table), err)
	}
	return count, nil
}
