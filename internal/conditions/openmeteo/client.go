// Package openmeteo reads coordinate-keyed daily forecasts from the
// Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/provider/resilience"
	"github.com/powdertracker/powdertracker/internal/telemetry"
)

const (
	// ProviderName identifies this forecast provider.
	ProviderName = conditions.ProviderOpenMeteo

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com/v1"

	// MaxForecastDays is the longest window Open-Meteo serves.
	MaxForecastDays = 16
)

var dailyFields = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"wind_speed_10m_max",
	"wind_gusts_10m_max",
	"wind_direction_10m_dominant",
	"precipitation_probability_max",
	"snowfall_sum",
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to Open-Meteo).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Metrics records request outcomes (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

var _ conditions.FallbackSource = (*Client)(nil)

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
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

// GetDailyForecast fetches one forecast entry per day starting today, in °F,
// mph and inches.
func (c *Client) GetDailyForecast(ctx context.Context, lat, lng float64, days int) (forecast []conditions.DailyForecast, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ProviderName, "daily", time.Since(start), err)
	}()

	if days <= 0 {
		days = 1
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', 4, 64))
	q.Set("daily", strings.Join(dailyFields, ","))
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Reason != "" {
			return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, apiErr.Reason)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var omResp forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&omResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	forecast = toDailyForecast(&omResp.Daily)
	if len(forecast) == 0 {
		return nil, fmt.Errorf("%w: %.4f,%.4f", conditions.ErrNoData, lat, lng)
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lng", lng).
		Int("days", len(forecast)).
		Msg("fetched open-meteo forecast")

	return forecast, nil
}

// toDailyForecast converts the column-oriented daily block to rows. Null
// and missing cells stay nil.
func toDailyForecast(d *dailyBlock) []conditions.DailyForecast {
	out := make([]conditions.DailyForecast, 0, len(d.Time))
	for i, date := range d.Time {
		out = append(out, conditions.DailyForecast{
			Date:              date,
			HighTemp:          pointerAt(d.TemperatureMax, i),
			LowTemp:           pointerAt(d.TemperatureMin, i),
			WindSpeedMax:      pointerAt(d.WindSpeedMax, i),
			WindGustMax:       pointerAt(d.WindGustsMax, i),
			WindDirection:     pointerAt(d.WindDirectionDominant, i),
			SnowfallSum:       pointerAt(d.SnowfallSum, i),
			PrecipProbability: pointerAt(d.PrecipitationProbabilityMax, i),
		})
	}
	return out
}

func pointerAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// Open-Meteo API response structures.

type forecastResponse struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Daily     dailyBlock `json:"daily"`
}

type dailyBlock struct {
	Time                        []string   `json:"time"`
	TemperatureMax              []*float64 `json:"temperature_2m_max"`
	TemperatureMin              []*float64 `json:"temperature_2m_min"`
	WindSpeedMax                []*float64 `json:"wind_speed_10m_max"`
	WindGustsMax                []*float64 `json:"wind_gusts_10m_max"`
	WindDirectionDominant       []*float64 `json:"wind_direction_10m_dominant"`
	PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	SnowfallSum                 []*float64 `json:"snowfall_sum"`
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}
