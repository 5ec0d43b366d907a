// Package conditions aggregates snow telemetry and weather forecasts into
// per-mountain conditions and powder scores.
package conditions

import (
	"errors"
	"time"
)

// Source errors shared by the adapters.
var (
	ErrProviderUnavailable = errors.New("conditions provider unavailable")
	ErrNoData              = errors.New("no data returned by provider")
	ErrAllSourcesFailed    = errors.New("all sources failed")
)

// Provider names as they appear in logs, metrics and health reports.
const (
	ProviderSNOTEL    = "snotel"
	ProviderNOAA      = "noaa"
	ProviderOpenMeteo = "openmeteo"
)

// HistoricalSnowSample is one daily telemetry reading for a station.
type HistoricalSnowSample struct {
	// Date is "YYYY-MM-DD", optionally followed by a time component.
	Date string

	// SnowDepth in inches.
	SnowDepth float64

	// SnowWaterEquivalent in inches, nil when the station did not report it.
	SnowWaterEquivalent *float64

	// Temperature observed at the station in °F, nil when not reported.
	Temperature *float64
}

// SnowConditions is the current telemetry snapshot of a station.
type SnowConditions struct {
	StationID   string
	SnowDepth   float64
	Snowfall24h float64
	Snowfall48h float64
	Temperature *float64
	ObservedOn  string
}

// ForecastDay is one day of the gridded forecast. The daily product carries no wind direction.
type ForecastDay struct {
	Date string
	Name string

	// Temperatures in °F
	High float64
	Low  float64

	// WindSpeed in mph
	WindSpeed float64

	ShortForecast     string
	PrecipProbability *float64
	PrecipType        string
}

// CurrentWeather is the gridded forecast's current-hour snapshot.
type CurrentWeather struct {
	Temperature       float64
	WindSpeed         float64
	WindGust          *float64
	WindDirection     string
	Conditions        string
	PrecipProbability *float64
	ObservedAt        time.Time
}

// DailyForecast is one day of the fallback forecast.
type DailyForecast struct {
	Date string

	// Temperatures in °F. Open-Meteo sends null for hours it has no
	// model output for, so every reading may be absent.
	HighTemp *float64
	LowTemp  *float64

	// Wind in mph, direction in degrees (0=N, 90=E)
	WindSpeedMax  *float64
	WindGustMax   *float64
	WindDirection *float64

	// SnowfallSum in inches
	SnowfallSum       *float64
	PrecipProbability *float64
}

// Wind is the emitted wind summary.
type Wind struct {
	Speed     float64 `json:"speed"`
	Direction string  `json:"direction"`
}

// DataSources records which providers contributed to a record.
type DataSources struct {
	SNOTEL    bool `json:"snotel"`
	NOAA      bool `json:"noaa"`
	OpenMeteo bool `json:"openMeteo"`
}

// ConditionsRecord is the aggregated conditions of one mountain.
type ConditionsRecord struct {
	MountainID   string      `json:"mountainId"`
	MountainName string      `json:"mountainName"`
	SnowDepth    float64     `json:"snowDepth"`
	Snowfall24h  float64     `json:"snowfall24h"`
	Snowfall48h  float64     `json:"snowfall48h"`
	Temperature  *int        `json:"temperature,omitempty"`
	Wind         *Wind       `json:"wind,omitempty"`
	Conditions   string      `json:"conditions"`
	DataSources  DataSources `json:"dataSources"`
	Error        bool        `json:"error,omitempty"`
}

// ScoreConditions are the raw inputs that produced a powder score.
type ScoreConditions struct {
	Snowfall24h float64 `json:"snowfall24h"`
	Snowfall48h float64 `json:"snowfall48h"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"windSpeed"`
}

// PowderScoreRecord is the powder score of one mountain.
type PowderScoreRecord struct {
	MountainID string          `json:"mountainId"`
	Score      float64         `json:"score"`
	Conditions ScoreConditions `json:"conditions"`
	Error      bool            `json:"error,omitempty"`
}

// ConditionsBatch is the cached payload of the conditions endpoint.
type ConditionsBatch struct {
	Data     []ConditionsRecord `json:"data"`
	Count    int                `json:"count"`
	CachedAt time.Time          `json:"cachedAt"`
}

// PowderScoreBatch is the cached payload of the powder-score endpoint.
type PowderScoreBatch struct {
	Scores   []PowderScoreRecord `json:"scores"`
	Count    int                 `json:"count"`
	CachedAt time.Time           `json:"cachedAt"`
}

// Result is the settled outcome of a fetch: a value or the error that replaced it.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the fetch succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// settle runs fn and captures its outcome, turning a panic into an error.
func settle[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[T]{Err: &PanicError{Value: p}}
		}
	}()
	v, err := fn()
	return Result[T]{Value: v, Err: err}
}
