package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/env-timeseries/internal/metrics"
	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

// Endpoints are the Open-Meteo base URLs.
type Endpoints struct {
	Forecast   string
	Archive    string
	AirQuality string
	Geocoding  string
}

// DefaultEndpoints returns the public Open-Meteo hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Forecast:   "https://api.open-meteo.com/v1/forecast",
		Archive:    "https://archive-api.open-meteo.com/v1/archive",
		AirQuality: "https://air-quality-api.open-meteo.com/v1/air-quality",
		Geocoding:  "https://geocoding-api.open-meteo.com/v1/search",
	}
}

// OpenMeteoConfig configures the Open-Meteo provider.
type OpenMeteoConfig struct {
	Client    *http.Client
	Endpoints Endpoints
	Backoff   BackoffConfig

	// RPS and Burst pace each endpoint separately; RPS <= 0 disables pacing.
	RPS   float64
	Burst int

	Metrics *metrics.Collector
}

type endpoint struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// OpenMeteoProvider implements weather.Provider for the Open-Meteo APIs.
type OpenMeteoProvider struct {
	forecast   endpoint
	archive    endpoint
	airQuality endpoint
	geocoding  endpoint
	metrics    *metrics.Collector
}

var _ weather.Provider = (*OpenMeteoProvider)(nil)

func NewOpenMeteoProvider(cfg OpenMeteoConfig) *OpenMeteoProvider {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff.InitialInterval = 500 * time.Millisecond
	}
	if cfg.Backoff.MaxInterval <= 0 {
		cfg.Backoff.MaxInterval = 5 * time.Second
	}

	newEndpoint := func(name, baseURL string) endpoint {
		httpCfg := HTTPClientConfig{Client: cfg.Client, Backoff: cfg.Backoff}
		if cfg.RPS > 0 {
			httpCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(cfg.Burst, 1))
		}
		return endpoint{
			name:    name,
			baseURL: baseURL,
			httpCfg: httpCfg,
			circuit: newBreaker("openmeteo-" + name),
		}
	}

	return &OpenMeteoProvider{
		forecast:   newEndpoint("forecast", cfg.Endpoints.Forecast),
		archive:    newEndpoint("archive", cfg.Endpoints.Archive),
		airQuality: newEndpoint("air_quality", cfg.Endpoints.AirQuality),
		geocoding:  newEndpoint("geocoding", cfg.Endpoints.Geocoding),
		metrics:    cfg.Metrics,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return "openmeteo"
}

// FetchHourly requests the hourly arrays for a dataset. Weather windows are
// whole UTC dates; air-quality windows are hour bounds.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, req weather.HourlyRequest) (weather.Document, error) {
	values := coordinates(req.Location.Latitude, req.Location.Longitude)
	values.Set("timezone", "UTC")

	var ep endpoint
	switch req.Dataset {
	case weather.DatasetAirQuality:
		ep = p.airQuality
		values.Set("hourly", strings.Join(series.AirQualityHourly.Keys(), ","))
		values.Set("start_hour", req.Start.UTC().Format("2006-01-02T15:04"))
		values.Set("end_hour", req.End.UTC().Format("2006-01-02T15:04"))
	case weather.DatasetWeather:
		ep = p.forecast
		if req.Mode == series.ModeArchive {
			ep = p.archive
		}
		values.Set("hourly", strings.Join(series.WeatherHourly.Keys(), ","))
		values.Set("start_date", req.Start.UTC().Format(time.DateOnly))
		values.Set("end_date", req.End.UTC().Format(time.DateOnly))
	default:
		return weather.Document{}, fmt.Errorf("openmeteo: unsupported dataset %q", req.Dataset)
	}

	return p.get(ctx, ep, values)
}

// FetchCurrent requests the current block plus the last hour of precipitation
// and cloud cover.
func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.Document, error) {
	keys := make([]string, 0, len(series.CurrentWeather.Mappings))
	for _, m := range series.CurrentWeather.Mappings {
		keys = append(keys, m.Key)
	}

	values := coordinates(loc.Latitude, loc.Longitude)
	values.Set("current", strings.Join(keys, ","))
	values.Set("hourly", "precipitation,cloud_cover")
	values.Set("past_hours", "1")
	values.Set("forecast_hours", "0")
	values.Set("timezone", "UTC")

	return p.get(ctx, p.forecast, values)
}

type dailyPayload struct {
	Daily struct {
		Time                        []string   `json:"time"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// FetchDaily requests daily tmax and precipitation probability.
func (p *OpenMeteoProvider) FetchDaily(ctx context.Context, lat, lon float64, days int) (weather.DailySeries, error) {
	values := coordinates(lat, lon)
	values.Set("forecast_days", strconv.Itoa(days))
	values.Set("daily", "temperature_2m_max,precipitation_probability_max")
	values.Set("timezone", "UTC")

	doc, err := p.get(ctx, p.forecast, values)
	if err != nil {
		return weather.DailySeries{}, err
	}

	var payload dailyPayload
	if err := json.Unmarshal(doc.Body, &payload); err != nil {
		return weather.DailySeries{}, &series.ParseError{Reason: "daily", Err: err}
	}

	out := weather.DailySeries{
		Dates:                    payload.Daily.Time,
		TempMax:                  payload.Daily.TemperatureMax,
		PrecipitationProbability: make([]*int, len(payload.Daily.PrecipitationProbabilityMax)),
	}
	if out.Dates == nil {
		out.Dates = []string{}
	}
	if out.TempMax == nil {
		out.TempMax = []*float64{}
	}
	for i, v := range payload.Daily.PrecipitationProbabilityMax {
		if v != nil {
			n := int(*v)
			out.PrecipitationProbability[i] = &n
		}
	}
	return out, nil
}

type geocodingPayload struct {
	Results []struct {
		Name        string  `json:"name"`
		Admin1      string  `json:"admin1"`
		CountryCode string  `json:"country_code"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	} `json:"results"`
}

// Search resolves a place name through the geocoding API. Returned locations
// carry no id.
func (p *OpenMeteoProvider) Search(ctx context.Context, name string, count int) ([]weather.Location, error) {
	values := url.Values{}
	values.Set("name", name)
	values.Set("count", strconv.Itoa(count))
	values.Set("language", "pl")
	values.Set("format", "json")

	doc, err := p.get(ctx, p.geocoding, values)
	if err != nil {
		return nil, err
	}

	var payload geocodingPayload
	if err := json.Unmarshal(doc.Body, &payload); err != nil {
		return nil, &series.ParseError{Reason: "geocoding", Err: err}
	}
	out := make([]weather.Location, 0, len(payload.Results))
	for _, r := range payload.Results {
		out = append(out, weather.Location{
			Name:      r.Name,
			Admin:     r.Admin1,
			Country:   r.CountryCode,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return out, nil
}

func (p *OpenMeteoProvider) get(ctx context.Context, ep endpoint, values url.Values) (weather.Document, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", ep.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	start := time.Now()
	doc, err := p.do(ctx, ep, buildRequest)
	p.metrics.RecordProviderRequest(ep.name, err, time.Since(start))
	return doc, err
}

func (p *OpenMeteoProvider) do(ctx context.Context, ep endpoint, buildRequest func() (*http.Request, error)) (weather.Document, error) {
	resp, err := doRequestWithResilience(ctx, ep.httpCfg, ep.circuit, buildRequest)
	if err != nil {
		return weather.Document{}, fmt.Errorf("openmeteo %s: %w", ep.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return weather.Document{}, fmt.Errorf("openmeteo %s: read body: %w", ep.name, err)
	}

	doc := weather.Document{Body: body}
	if date := resp.Header.Get("Date"); date != "" {
		if ts, err := http.ParseTime(date); err == nil {
			doc.Date = ts.UTC()
		}
	}
	return doc, nil
}

func coordinates(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return values
}
