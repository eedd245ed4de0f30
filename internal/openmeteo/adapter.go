package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reefcast/internal/types"
)

// Variable lists requested from each collaborator. The two requests are
// deliberately disjoint: ocean state from the marine API, atmosphere from
// the weather API.
var (
	marineVariables = []string{
		"wave_height",
		"wave_period",
		"wave_direction",
		"ocean_current_velocity",
		"ocean_current_direction",
		"sea_level_height_msl",
	}
	weatherVariables = []string{
		"wind_speed_10m",
		"wind_direction_10m",
		"wind_gusts_10m",
		"cloud_cover",
		"temperature_2m",
		"precipitation_probability",
		"precipitation",
	}
)

// hourlyAxis is the provider-native time encoding shared by both APIs:
// epoch seconds per sample (requested via timeformat=unixtime) plus the
// response's UTC offset. Absolute timestamps come from the epoch values;
// the offset is echoed for diagnostics only.
type hourlyAxis struct {
	Time []int64 `json:"time"`
}

type marineResponse struct {
	UTCOffsetSeconds int64 `json:"utc_offset_seconds"`
	Hourly           struct {
		hourlyAxis
		WaveHeight            []*float64 `json:"wave_height"`
		WavePeriod            []*float64 `json:"wave_period"`
		WaveDirection         []*float64 `json:"wave_direction"`
		OceanCurrentVelocity  []*float64 `json:"ocean_current_velocity"`
		OceanCurrentDirection []*float64 `json:"ocean_current_direction"`
		SeaLevelHeightMSL     []*float64 `json:"sea_level_height_msl"`
	} `json:"hourly"`
}

type weatherResponse struct {
	UTCOffsetSeconds int64 `json:"utc_offset_seconds"`
	Hourly           struct {
		hourlyAxis
		WindSpeed         []*float64 `json:"wind_speed_10m"`
		WindDirection     []*float64 `json:"wind_direction_10m"`
		WindGusts         []*float64 `json:"wind_gusts_10m"`
		CloudCover        []*float64 `json:"cloud_cover"`
		Temperature       []*float64 `json:"temperature_2m"`
		PrecipProbability []*float64 `json:"precipitation_probability"`
		Precipitation     []*float64 `json:"precipitation"`
	} `json:"hourly"`
}

// AdapterConfig holds the configuration for creating an Adapter.
type AdapterConfig struct {
	Client         *Client
	MarineBaseURL  string
	WeatherBaseURL string
	MarineAPIKey   types.SecretString
	WeatherAPIKey  types.SecretString
	Timezone       *time.Location // for deriving forecast dates
	Logger         *slog.Logger
}

// Adapter fetches and normalizes forecast data for one location at a time.
// It issues the marine and weather requests concurrently; both must
// succeed for the fetch to succeed. No partial batches are produced.
type Adapter struct {
	client     *Client
	marineURL  string
	weatherURL string
	marineKey  types.SecretString
	weatherKey types.SecretString
	tz         *time.Location
	logger     *slog.Logger
}

// CallsPerFetch is the number of upstream requests one Fetch issues.
const CallsPerFetch = 2

// NewAdapter creates a provider adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}
	return &Adapter{
		client:     cfg.Client,
		marineURL:  cfg.MarineBaseURL,
		weatherURL: cfg.WeatherBaseURL,
		marineKey:  cfg.MarineAPIKey,
		weatherKey: cfg.WeatherAPIKey,
		tz:         tz,
		logger:     logger,
	}
}

// Fetch retrieves horizonDays of hourly forecast data for one location and
// merges the two provider responses into a single normalized batch.
//
// The responses are merged by aligned timestamp index. The two APIs serve
// the same hourly grid, but when the axes diverge in length the merge
// truncates to the shorter one and continues; the mismatch is logged, not
// fatal. Any upstream failure fails the whole call.
func (a *Adapter) Fetch(ctx context.Context, loc types.Location, horizonDays int) (*types.ForecastBatch, error) {
	var marine marineResponse
	var weather weatherResponse

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.fetchJSON(gCtx, a.marineURL, a.marineKey, marineVariables, loc, horizonDays, &marine)
	})
	g.Go(func() error {
		return a.fetchJSON(gCtx, a.weatherURL, a.weatherKey, weatherVariables, loc, horizonDays, &weather)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := len(marine.Hourly.Time)
	if len(weather.Hourly.Time) != n {
		a.logger.WarnContext(ctx, "provider time axes diverge, truncating to shorter",
			"location", loc.Key(),
			"marine_len", n,
			"weather_len", len(weather.Hourly.Time),
		)
		if len(weather.Hourly.Time) < n {
			n = len(weather.Hourly.Time)
		}
	}

	samples := make([]types.ForecastSample, 0, n)
	for i := 0; i < n; i++ {
		ts := time.Unix(marine.Hourly.Time[i], 0).UTC()
		samples = append(samples, types.ForecastSample{
			Location:     loc,
			Timestamp:    ts,
			ForecastDate: ts.In(a.tz).Format("2006-01-02"),

			WaveHeight:           at(marine.Hourly.WaveHeight, i),
			WavePeriod:           at(marine.Hourly.WavePeriod, i),
			SwellWaveDirection:   at(marine.Hourly.WaveDirection, i),
			OceanCurrentVelocity: at(marine.Hourly.OceanCurrentVelocity, i),
			OceanCurrentDir:      at(marine.Hourly.OceanCurrentDirection, i),
			SeaLevelHeight:       at(marine.Hourly.SeaLevelHeightMSL, i),

			WindSpeed:         at(weather.Hourly.WindSpeed, i),
			WindDirection:     at(weather.Hourly.WindDirection, i),
			WindGusts:         at(weather.Hourly.WindGusts, i),
			CloudCover:        at(weather.Hourly.CloudCover, i),
			Temperature:       at(weather.Hourly.Temperature, i),
			PrecipProbability: at(weather.Hourly.PrecipProbability, i),
			PrecipAmount:      at(weather.Hourly.Precipitation, i),
		})
	}

	return &types.ForecastBatch{Location: loc, Samples: samples}, nil
}

// fetchJSON issues one provider request and decodes the response into out.
// Failure conditions (non-success status, malformed payload, transport
// error) all map into the provider failure taxonomy with the location
// attached for the per-location error log.
func (a *Adapter) fetchJSON(ctx context.Context, baseURL string, apiKey types.SecretString, variables []string, loc types.Location, horizonDays int, out any) error {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	q.Set("hourly", strings.Join(variables, ","))
	q.Set("forecast_days", strconv.Itoa(horizonDays))
	q.Set("timeformat", "unixtime")
	if apiKey.Unmask() != "" {
		q.Set("apikey", apiKey.Unmask())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeProviderUnavailable,
			"failed to build upstream request", err).
			WithDetails(map[string]any{"location": loc.Key()})
	}

	resp, err := a.client.Do(req)
	if err != nil {
		var appErr *types.AppError
		if e, ok := err.(*types.AppError); ok {
			appErr = e
		} else {
			appErr = types.NewAppError(types.ErrCodeProviderUnavailable, "upstream request failed", err)
		}
		return appErr.WithDetails(map[string]any{"location": loc.Key()})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewAppError(types.ErrCodeProviderUnavailable,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil).
			WithDetails(map[string]any{
				"location": loc.Key(),
				"body":     string(body),
			})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeProviderMalformed,
			"failed to decode upstream payload", err).
			WithDetails(map[string]any{"location": loc.Key()})
	}

	return nil
}

// at indexes a nullable value array that may be shorter than the time
// axis. Out-of-range reads and explicit nulls both come back as absent.
func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
