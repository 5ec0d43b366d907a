package conditions

import (
	"context"

	"github.com/powdertracker/powdertracker/internal/mountain"
)

// TelemetrySource provides snow telemetry from automated stations.
type TelemetrySource interface {
	// GetHistoricalData returns the daily samples of the last days for a station.
	GetHistoricalData(ctx context.Context, stationID string, days int) ([]HistoricalSnowSample, error)

	// GetCurrentConditions returns the latest snow snapshot for a station.
	GetCurrentConditions(ctx context.Context, stationID string) (*SnowConditions, error)

	// Name returns the provider name for logging.
	Name() string
}

// GridSource provides forecasts keyed by a forecast office grid point.
type GridSource interface {
	// GetForecast returns daily forecast entries, the first being the current day.
	GetForecast(ctx context.Context, grid mountain.GridPoint) ([]ForecastDay, error)

	// GetCurrentWeather returns the current-hour snapshot.
	GetCurrentWeather(ctx context.Context, grid mountain.GridPoint) (*CurrentWeather, error)

	// Name returns the provider name for logging.
	Name() string
}

// FallbackSource provides coordinate-keyed daily forecasts.
type FallbackSource interface {
	// GetDailyForecast returns one entry per day starting today.
	GetDailyForecast(ctx context.Context, lat, lng float64, days int) ([]DailyForecast, error)

	// Name returns the provider name for logging.
	Name() string
}
