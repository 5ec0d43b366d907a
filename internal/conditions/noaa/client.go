// Package noaa reads gridded forecasts from the National Weather Service API
// (api.weather.gov).
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/mountain"
	"github.com/powdertracker/powdertracker/internal/provider/resilience"
	"github.com/powdertracker/powdertracker/internal/telemetry"
)

const (
	// ProviderName identifies this forecast provider.
	ProviderName = conditions.ProviderNOAA

	// DefaultBaseURL is the NWS API base URL.
	DefaultBaseURL = "https://api.weather.gov"

	// DefaultUserAgent identifies this service to the NWS API, which
	// rejects anonymous requests.
	DefaultUserAgent = "powdertracker/1.0 (ops@powdertracker.app)"
)

// ClientConfig holds configuration for the NWS client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to api.weather.gov).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults and DefaultUserAgent.
	HTTPClient *resilience.Client

	// Metrics records request outcomes (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an NWS API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

var _ conditions.GridSource = (*Client)(nil)

// NewClient creates a new NWS client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.UserAgent = DefaultUserAgent
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetForecast fetches the twelve-hour forecast periods for a grid point and
// merges each day/night pair into one day. The first entry is the current day.
func (c *Client) GetForecast(ctx context.Context, grid mountain.GridPoint) (days []conditions.ForecastDay, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ProviderName, "forecast", time.Since(start), err)
	}()

	periods, err := c.fetchPeriods(ctx, c.gridURL(grid, "forecast"))
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: grid %s", conditions.ErrNoData, grid)
	}

	return mergePeriods(periods), nil
}

// GetCurrentWeather fetches the hourly forecast for a grid point and returns its first period.
func (c *Client) GetCurrentWeather(ctx context.Context, grid mountain.GridPoint) (current *conditions.CurrentWeather, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ProviderName, "hourly", time.Since(start), err)
	}()

	periods, err := c.fetchPeriods(ctx, c.gridURL(grid, "forecast/hourly"))
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: grid %s", conditions.ErrNoData, grid)
	}

	p := periods[0]
	current = &conditions.CurrentWeather{
		Temperature:       p.fahrenheit(),
		WindSpeed:         ParseWindSpeed(p.WindSpeed),
		WindDirection:     p.WindDirection,
		Conditions:        p.ShortForecast,
		PrecipProbability: p.ProbabilityOfPrecipitation.Value,
		ObservedAt:        p.StartTime,
	}
	if p.WindGust != "" {
		gust := ParseWindSpeed(p.WindGust)
		current.WindGust = &gust
	}

	return current, nil
}

func (c *Client) gridURL(grid mountain.GridPoint, product string) string {
	return fmt.Sprintf("%s/gridpoints/%s/%d,%d/%s", c.baseURL, grid.Office, grid.X, grid.Y, product)
}

func (c *Client) fetchPeriods(ctx context.Context, url string) ([]period, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().
		Str("url", url).
		Int("periods", len(forecast.Properties.Periods)).
		Msg("fetched nws forecast")

	return forecast.Properties.Periods, nil
}

// mergePeriods folds day and night periods into calendar days, in order of
// first appearance. A day with only one half uses that half for both the
// high and the low.
func mergePeriods(periods []period) []conditions.ForecastDay {
	type halves struct {
		day   *period
		night *period
	}

	var order []string
	byDate := make(map[string]*halves)

	for i := range periods {
		p := &periods[i]
		date := p.date()
		h, ok := byDate[date]
		if !ok {
			h = &halves{}
			byDate[date] = h
			order = append(order, date)
		}
		if p.IsDaytime {
			if h.day == nil {
				h.day = p
			}
		} else if h.night == nil {
			h.night = p
		}
	}

	days := make([]conditions.ForecastDay, 0, len(order))
	for _, date := range order {
		h := byDate[date]

		primary := h.day
		if primary == nil {
			primary = h.night
		}

		day := conditions.ForecastDay{
			Date:              date,
			Name:              primary.Name,
			High:              primary.fahrenheit(),
			Low:               primary.fahrenheit(),
			WindSpeed:         ParseWindSpeed(primary.WindSpeed),
			ShortForecast:     primary.ShortForecast,
			PrecipProbability: primary.ProbabilityOfPrecipitation.Value,
		}

		if h.day != nil && h.night != nil {
			day.Low = h.night.fahrenheit()
			if night := ParseWindSpeed(h.night.WindSpeed); night > day.WindSpeed {
				day.WindSpeed = night
			}
			day.PrecipProbability = maxProbability(day.PrecipProbability, h.night.ProbabilityOfPrecipitation.Value)
		}

		day.PrecipType = precipType(day.ShortForecast)
		days = append(days, day)
	}

	return days
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseWindSpeed extracts the highest number from an NWS wind string such as
// "10 to 20 mph". Strings without a number, like "Calm", parse to zero.
func ParseWindSpeed(s string) float64 {
	var speed float64
	for _, m := range numberPattern.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err == nil && v > speed {
			speed = v
		}
	}
	if strings.Contains(strings.ToLower(s), "km/h") {
		speed /= 1.609344
	}
	return speed
}

func precipType(shortForecast string) string {
	f := strings.ToLower(shortForecast)
	switch {
	case strings.Contains(f, "freezing"), strings.Contains(f, "sleet"), strings.Contains(f, "wintry mix"):
		return "mixed"
	case strings.Contains(f, "snow"), strings.Contains(f, "flurries"):
		if strings.Contains(f, "rain") {
			return "mixed"
		}
		return "snow"
	case strings.Contains(f, "rain"), strings.Contains(f, "showers"), strings.Contains(f, "drizzle"):
		return "rain"
	default:
		return ""
	}
}

func maxProbability(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}

// NWS API response structures.

type forecastResponse struct {
	Properties struct {
		Updated time.Time `json:"updated"`
		Periods []period  `json:"periods"`
	} `json:"properties"`
}

type period struct {
	Number                     int       `json:"number"`
	Name                       string    `json:"name"`
	StartTime                  time.Time `json:"startTime"`
	EndTime                    time.Time `json:"endTime"`
	IsDaytime                  bool      `json:"isDaytime"`
	Temperature                float64   `json:"temperature"`
	TemperatureUnit            string    `json:"temperatureUnit"`
	WindSpeed                  string    `json:"windSpeed"`
	WindGust                   string    `json:"windGust"`
	WindDirection              string    `json:"windDirection"`
	ShortForecast              string    `json:"shortForecast"`
	ProbabilityOfPrecipitation struct {
		UnitCode string   `json:"unitCode"`
		Value    *float64 `json:"value"`
	} `json:"probabilityOfPrecipitation"`
}

// date returns the local calendar date the period starts on.
func (p *period) date() string {
	return p.StartTime.Format("2006-01-02")
}

func (p *period) fahrenheit() float64 {
	if strings.EqualFold(p.TemperatureUnit, "C") {
		return p.Temperature*9/5 + 32
	}
	return p.Temperature
}
