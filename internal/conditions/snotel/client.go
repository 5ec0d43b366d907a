// Package snotel reads snow telemetry from the NRCS Air and Water Database
// (AWDB) REST API, which serves SNOTEL station data.
package snotel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/provider/resilience"
	"github.com/powdertracker/powdertracker/internal/telemetry"
)

const (
	// ProviderName identifies this telemetry provider.
	ProviderName = conditions.ProviderSNOTEL

	// DefaultBaseURL is the AWDB REST API base URL.
	DefaultBaseURL = "https://wcc.sc.egov.usda.gov/awdbRestApi/services/v1"

	// Element codes requested from AWDB.
	elementSnowDepth = "SNWD"
	elementSWE       = "WTEQ"
	elementAirTemp   = "TOBS"

	dateLayout = "2006-01-02"
)

// ErrStationNotFound is returned when AWDB knows no station for the triplet.
var ErrStationNotFound = errors.New("snotel station not found")

// ClientConfig holds configuration for the SNOTEL client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to AWDB).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Metrics records request outcomes (optional).
	Metrics *telemetry.ProviderMetrics

	// Location decides the calendar day of the request window
	// (default: America/Los_Angeles).
	Location *time.Location

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AWDB API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	metrics    *telemetry.ProviderMetrics
	location   *time.Location
	now        func() time.Time
	logger     zerolog.Logger
}

var _ conditions.TelemetrySource = (*Client)(nil)

// NewClient creates a new SNOTEL client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	location := cfg.Location
	if location == nil {
		loc, err := time.LoadLocation("America/Los_Angeles")
		if err != nil {
			loc = time.UTC
		}
		location = loc
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		location:   location,
		now:        now,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetHistoricalData fetches the daily samples of the last days for a station,
// ordered by date. Days without a snow depth reading are skipped.
func (c *Client) GetHistoricalData(ctx context.Context, stationID string, days int) (samples []conditions.HistoricalSnowSample, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequest(ProviderName, "historical", time.Since(start), err)
	}()

	if stationID == "" {
		return nil, fmt.Errorf("%w: empty station id", ErrStationNotFound)
	}
	if days <= 0 {
		days = 1
	}

	end := c.now().In(c.location)
	begin := end.AddDate(0, 0, -(days - 1))

	q := url.Values{}
	q.Set("stationTriplets", stationID)
	q.Set("elements", strings.Join([]string{elementSnowDepth, elementSWE, elementAirTemp}, ","))
	q.Set("duration", "DAILY")
	q.Set("beginDate", begin.Format(dateLayout))
	q.Set("endDate", end.Format(dateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, stationID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var stations []stationDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&stations); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	station := findStation(stations, stationID)
	if station == nil {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, stationID)
	}

	samples = toSamples(station)

	c.logger.Debug().
		Str("station_id", stationID).
		Int("samples", len(samples)).
		Msg("fetched snotel history")

	return samples, nil
}

// GetCurrentConditions derives the current snow snapshot from the samples
// of the last three calendar days in the client's location. A day without a
// depth reading contributes no delta.
func (c *Client) GetCurrentConditions(ctx context.Context, stationID string) (*conditions.SnowConditions, error) {
	samples, err := c.GetHistoricalData(ctx, stationID, 3)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: station %s", conditions.ErrNoData, stationID)
	}

	snow := conditions.SnowfallFromHistory(samples, c.now().In(c.location))
	snow.StationID = stationID
	return &snow, nil
}

func findStation(stations []stationDataResponse, stationID string) *stationDataResponse {
	for i := range stations {
		if strings.EqualFold(stations[i].StationTriplet, stationID) {
			return &stations[i]
		}
	}
	// AWDB echoes the triplet it resolved, which may differ in case or
	// padding; a single result is the one we asked for.
	if len(stations) == 1 {
		return &stations[0]
	}
	return nil
}

// toSamples pivots per-element value series into one sample per date.
func toSamples(station *stationDataResponse) []conditions.HistoricalSnowSample {
	type day struct {
		depth *float64
		swe   *float64
		temp  *float64
	}
	byDate := make(map[string]*day)

	for _, element := range station.Data {
		for _, v := range element.Values {
			if v.Value == nil || v.Date == "" {
				continue
			}
			key := dateKey(v.Date)
			d, ok := byDate[key]
			if !ok {
				d = &day{}
				byDate[key] = d
			}
			// A repeated date keeps its first reading.
			value := *v.Value
			switch element.StationElement.ElementCode {
			case elementSnowDepth:
				if d.depth == nil {
					d.depth = &value
				}
			case elementSWE:
				if d.swe == nil {
					d.swe = &value
				}
			case elementAirTemp:
				if d.temp == nil {
					d.temp = &value
				}
			}
		}
	}

	samples := make([]conditions.HistoricalSnowSample, 0, len(byDate))
	for date, d := range byDate {
		if d.depth == nil {
			continue
		}
		samples = append(samples, conditions.HistoricalSnowSample{
			Date:                date,
			SnowDepth:           math.Max(0, *d.depth),
			SnowWaterEquivalent: d.swe,
			Temperature:         d.temp,
		})
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Date < samples[j].Date
	})

	return samples
}

// dateKey trims a timestamp such as "2025-01-15 00:00" to its date.
func dateKey(date string) string {
	if len(date) >= len(dateLayout) {
		return date[:len(dateLayout)]
	}
	return date
}

// AWDB API response structures.

type stationDataResponse struct {
	StationTriplet string `json:"stationTriplet"`
	Data           []struct {
		StationElement struct {
			ElementCode    string `json:"elementCode"`
			StoredUnitCode string `json:"storedUnitCode"`
		} `json:"stationElement"`
		Values []struct {
			Date  string   `json:"date"`
			Value *float64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}
