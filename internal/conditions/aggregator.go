package conditions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/powdertracker/powdertracker/internal/mountain"
)

const (
	// DefaultHistoryDays is the telemetry window used for snowfall deltas.
	DefaultHistoryDays = 3

	// UnknownConditions is reported when no source supplies condition text.
	UnknownConditions = "Unknown"

	dateLayout = "2006-01-02"
)

// AggregatorConfig holds configuration for the aggregator.
type AggregatorConfig struct {
	// Registry lists the mountains to aggregate (required).
	Registry mountain.Registry

	// Telemetry is the snow telemetry source. Nil means unavailable.
	Telemetry TelemetrySource

	// Grid is the gridded forecast source. Nil means unavailable.
	Grid GridSource

	// Fallback is the coordinate-keyed forecast used for mountains without a grid point.
	Fallback FallbackSource

	// Logger for aggregation diagnostics.
	Logger zerolog.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// HistoryDays is the telemetry history window (default: 3).
	HistoryDays int
}

// Aggregator merges per-source results into one record per mountain.
// A failing source degrades the record of its mountain; only a registry
// failure fails a whole batch.
type Aggregator struct {
	registry    mountain.Registry
	telemetry   TelemetrySource
	grid        GridSource
	fallback    FallbackSource
	logger      zerolog.Logger
	now         func() time.Time
	historyDays int
}

// NewAggregator creates a new aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	historyDays := cfg.HistoryDays
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}

	return &Aggregator{
		registry:    cfg.Registry,
		telemetry:   cfg.Telemetry,
		grid:        cfg.Grid,
		fallback:    cfg.Fallback,
		logger:      cfg.Logger,
		now:         now,
		historyDays: historyDays,
	}
}

// weatherReading is the source-neutral weather input of a record. Nil
// readings were not supplied by the source.
type weatherReading struct {
	source        string
	temperature   *float64
	windSpeed     *float64
	windDirection string
	conditions    string
}

// BuildConditions assembles one conditions record per registry mountain, in registry order.
func (a *Aggregator) BuildConditions(ctx context.Context) ([]ConditionsRecord, error) {
	mountains, err := a.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mountains: %w", err)
	}

	records := make([]ConditionsRecord, len(mountains))

	var g errgroup.Group
	for i := range mountains {
		m := mountains[i]
		g.Go(func() error {
			records[i] = a.conditionsFor(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	return records, nil
}

// BuildPowderScores computes one powder score per registry mountain, in registry order.
func (a *Aggregator) BuildPowderScores(ctx context.Context) ([]PowderScoreRecord, error) {
	mountains, err := a.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mountains: %w", err)
	}

	records := make([]PowderScoreRecord, len(mountains))

	var g errgroup.Group
	for i := range mountains {
		m := mountains[i]
		g.Go(func() error {
			records[i] = a.powderScoreFor(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	return records, nil
}

func (a *Aggregator) conditionsFor(ctx context.Context, m mountain.Mountain) ConditionsRecord {
	res := settle(func() (ConditionsRecord, error) {
		return a.buildConditionsRecord(ctx, m)
	})
	if res.Err != nil {
		a.logger.Warn().
			Err(res.Err).
			Str("mountain_id", m.ID).
			Msg("conditions unavailable for mountain")
		return errorConditionsRecord(m)
	}
	return res.Value
}

func (a *Aggregator) buildConditionsRecord(ctx context.Context, m mountain.Mountain) (ConditionsRecord, error) {
	var (
		history Result[[]HistoricalSnowSample]
		weather Result[weatherReading]
		wg      sync.WaitGroup
	)

	if m.HasSNOTEL() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			history = settle(func() ([]HistoricalSnowSample, error) {
				return a.fetchHistory(ctx, m)
			})
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		weather = settle(func() (weatherReading, error) {
			return a.fetchForecastWeather(ctx, m)
		})
	}()

	wg.Wait()

	record := ConditionsRecord{
		MountainID:   m.ID,
		MountainName: m.Name,
		Conditions:   UnknownConditions,
	}

	if m.HasSNOTEL() {
		if history.OK() {
			today := a.now().In(m.Location())
			snow := SnowfallFromHistory(history.Value, today)
			record.SnowDepth = snow.SnowDepth
			record.Snowfall24h = snow.Snowfall24h
			record.Snowfall48h = snow.Snowfall48h
			record.DataSources.SNOTEL = true
		} else {
			a.logSourceFailure(m, ProviderSNOTEL, history.Err)
		}
	}

	if weather.OK() {
		w := weather.Value
		if w.temperature != nil {
			temp := int(math.Round(*w.temperature))
			record.Temperature = &temp
		}
		if w.windSpeed != nil {
			record.Wind = &Wind{Speed: *w.windSpeed, Direction: w.windDirection}
		}
		record.Conditions = w.conditions
		markSource(&record.DataSources, w.source)
	} else {
		a.logSourceFailure(m, weatherSourceFor(m), weather.Err)
	}

	if !record.DataSources.Any() {
		return ConditionsRecord{}, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(history.Err, weather.Err))
	}

	return record, nil
}

func (a *Aggregator) powderScoreFor(ctx context.Context, m mountain.Mountain) PowderScoreRecord {
	res := settle(func() (PowderScoreRecord, error) {
		return a.buildPowderScoreRecord(ctx, m)
	})
	if res.Err != nil {
		a.logger.Warn().
			Err(res.Err).
			Str("mountain_id", m.ID).
			Msg("powder score unavailable for mountain")
		return PowderScoreRecord{MountainID: m.ID, Error: true}
	}
	return res.Value
}

func (a *Aggregator) buildPowderScoreRecord(ctx context.Context, m mountain.Mountain) (PowderScoreRecord, error) {
	var (
		snow    Result[*SnowConditions]
		weather Result[weatherReading]
		wg      sync.WaitGroup
	)

	if m.HasSNOTEL() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snow = settle(func() (*SnowConditions, error) {
				return a.fetchCurrentSnow(ctx, m)
			})
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		weather = settle(func() (weatherReading, error) {
			return a.fetchCurrentWeather(ctx, m)
		})
	}()

	wg.Wait()

	inputs := ScoreInputs{
		Temperature: DefaultTemperature,
		WindSpeed:   DefaultWindSpeed,
	}
	contributed := false

	if weather.OK() {
		if t := weather.Value.temperature; t != nil {
			inputs.Temperature = *t
		}
		if s := weather.Value.windSpeed; s != nil {
			inputs.WindSpeed = *s
		}
		contributed = true
	} else {
		a.logSourceFailure(m, weatherSourceFor(m), weather.Err)
	}

	if m.HasSNOTEL() {
		if snow.OK() {
			inputs.Snowfall24h = math.Max(0, snow.Value.Snowfall24h)
			inputs.Snowfall48h = math.Max(0, snow.Value.Snowfall48h)
			// Station temperature is preferred over the forecast.
			if snow.Value.Temperature != nil {
				inputs.Temperature = *snow.Value.Temperature
			}
			contributed = true
		} else {
			a.logSourceFailure(m, ProviderSNOTEL, snow.Err)
		}
	}

	if !contributed {
		return PowderScoreRecord{}, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(snow.Err, weather.Err))
	}

	return PowderScoreRecord{
		MountainID: m.ID,
		Score:      PowderScore(inputs),
		Conditions: ScoreConditions{
			Snowfall24h: inputs.Snowfall24h,
			Snowfall48h: inputs.Snowfall48h,
			Temperature: inputs.Temperature,
			WindSpeed:   inputs.WindSpeed,
		},
	}, nil
}

func (a *Aggregator) fetchHistory(ctx context.Context, m mountain.Mountain) ([]HistoricalSnowSample, error) {
	if a.telemetry == nil {
		return nil, ErrProviderUnavailable
	}
	return a.telemetry.GetHistoricalData(ctx, m.SNOTEL.StationID, a.historyDays)
}

func (a *Aggregator) fetchCurrentSnow(ctx context.Context, m mountain.Mountain) (*SnowConditions, error) {
	if a.telemetry == nil {
		return nil, ErrProviderUnavailable
	}
	snow, err := a.telemetry.GetCurrentConditions(ctx, m.SNOTEL.StationID)
	if err != nil {
		return nil, err
	}
	if snow == nil {
		return nil, ErrNoData
	}
	return snow, nil
}

// fetchForecastWeather reads today's forecast from the grid when the mountain
// has one, and from the fallback provider otherwise.
func (a *Aggregator) fetchForecastWeather(ctx context.Context, m mountain.Mountain) (weatherReading, error) {
	if m.HasNOAA() {
		if a.grid == nil {
			return weatherReading{}, ErrProviderUnavailable
		}
		days, err := a.grid.GetForecast(ctx, *m.NOAA)
		if err != nil {
			return weatherReading{}, err
		}
		if len(days) == 0 {
			return weatherReading{}, ErrNoData
		}
		today := days[0]
		conditions := today.ShortForecast
		if conditions == "" {
			conditions = UnknownConditions
		}
		return weatherReading{
			source:      ProviderNOAA,
			temperature: ptr((today.High + today.Low) / 2),
			windSpeed:   ptr(today.WindSpeed),
			conditions:  conditions,
		}, nil
	}

	return a.fetchFallbackWeather(ctx, m)
}

// fetchCurrentWeather reads the current hour from the grid when the mountain
// has one, and today's fallback forecast otherwise.
func (a *Aggregator) fetchCurrentWeather(ctx context.Context, m mountain.Mountain) (weatherReading, error) {
	if m.HasNOAA() {
		if a.grid == nil {
			return weatherReading{}, ErrProviderUnavailable
		}
		current, err := a.grid.GetCurrentWeather(ctx, *m.NOAA)
		if err != nil {
			return weatherReading{}, err
		}
		if current == nil {
			return weatherReading{}, ErrNoData
		}
		conditions := current.Conditions
		if conditions == "" {
			conditions = UnknownConditions
		}
		return weatherReading{
			source:        ProviderNOAA,
			temperature:   ptr(current.Temperature),
			windSpeed:     ptr(current.WindSpeed),
			windDirection: current.WindDirection,
			conditions:    conditions,
		}, nil
	}

	return a.fetchFallbackWeather(ctx, m)
}

func (a *Aggregator) fetchFallbackWeather(ctx context.Context, m mountain.Mountain) (weatherReading, error) {
	if a.fallback == nil {
		return weatherReading{}, ErrProviderUnavailable
	}
	days, err := a.fallback.GetDailyForecast(ctx, m.Lat, m.Lng, 1)
	if err != nil {
		return weatherReading{}, err
	}
	if len(days) == 0 {
		return weatherReading{}, ErrNoData
	}
	today := days[0]

	reading := weatherReading{
		source:      ProviderOpenMeteo,
		temperature: meanOf(today.HighTemp, today.LowTemp),
		windSpeed:   today.WindSpeedMax,
		conditions:  UnknownConditions,
	}
	if today.WindDirection != nil {
		reading.windDirection = CompassDirection(*today.WindDirection)
	}
	if reading.temperature == nil && reading.windSpeed == nil {
		return weatherReading{}, fmt.Errorf("%w: no temperature or wind for %s", ErrNoData, today.Date)
	}
	return reading, nil
}

// meanOf averages the readings that are present.
func meanOf(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		return ptr((*a + *b) / 2)
	case a != nil:
		return a
	default:
		return b
	}
}

func ptr(v float64) *float64 {
	return &v
}

func (a *Aggregator) logSourceFailure(m mountain.Mountain, source string, err error) {
	a.logger.Debug().
		Err(err).
		Str("mountain_id", m.ID).
		Str("source", source).
		Msg("source contributed no data")
}

// SnowfallFromHistory derives depth and recent snowfall from the samples
// dated today, yesterday and the day before, in today's location. Samples
// are matched by date prefix, so provider ordering and gaps never shift a
// delta onto the wrong day. Depth losses count as zero snowfall.
func SnowfallFromHistory(samples []HistoricalSnowSample, today time.Time) SnowConditions {
	current := findSample(samples, today.Format(dateLayout))
	yesterday := findSample(samples, today.AddDate(0, 0, -1).Format(dateLayout))
	dayBefore := findSample(samples, today.AddDate(0, 0, -2).Format(dateLayout))

	var snow SnowConditions
	if current != nil {
		snow.SnowDepth = current.SnowDepth
		snow.ObservedOn = current.Date
		snow.Temperature = current.Temperature
	}

	if yesterday != nil {
		snow.Snowfall24h = math.Max(0, snow.SnowDepth-yesterday.SnowDepth)
	}

	if dayBefore != nil {
		snow.Snowfall48h = math.Max(0, snow.SnowDepth-dayBefore.SnowDepth)
	} else {
		snow.Snowfall48h = snow.Snowfall24h
	}

	return snow
}

// findSample returns the first sample whose date starts with date.
func findSample(samples []HistoricalSnowSample, date string) *HistoricalSnowSample {
	for i := range samples {
		if strings.HasPrefix(samples[i].Date, date) {
			return &samples[i]
		}
	}
	return nil
}

func errorConditionsRecord(m mountain.Mountain) ConditionsRecord {
	return ConditionsRecord{
		MountainID:   m.ID,
		MountainName: m.Name,
		Conditions:   UnknownConditions,
		Error:        true,
	}
}

func weatherSourceFor(m mountain.Mountain) string {
	if m.HasNOAA() {
		return ProviderNOAA
	}
	return ProviderOpenMeteo
}

func markSource(ds *DataSources, source string) {
	switch source {
	case ProviderSNOTEL:
		ds.SNOTEL = true
	case ProviderNOAA:
		ds.NOAA = true
	case ProviderOpenMeteo:
		ds.OpenMeteo = true
	}
}

// Any reports whether at least one provider contributed.
func (d DataSources) Any() bool {
	return d.SNOTEL || d.NOAA || d.OpenMeteo
}
