package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/env-timeseries/internal/metrics"
	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/store"
	"github.com/i474232898/env-timeseries/internal/weather"
)

var now = time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

// stubProvider answers every hourly request with one point per hour of the
// requested window.
type stubProvider struct {
	failHourly bool
	days       []int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchHourly(_ context.Context, req weather.HourlyRequest) (weather.Document, error) {
	if p.failHourly {
		return weather.Document{}, errors.New("upstream down")
	}
	key := "temperature_2m"
	if req.Dataset == weather.DatasetAirQuality {
		key = "pm10"
	}
	end := req.End
	if req.Dataset == weather.DatasetWeather {
		end = end.Add(23 * time.Hour)
	}
	var times, values []string
	for t := req.Start.Truncate(time.Hour); !t.After(end); t = t.Add(time.Hour) {
		times = append(times, fmt.Sprintf("%q", t.Format("2006-01-02T15:04")))
		values = append(values, "10")
	}
	body := fmt.Sprintf(`{"hourly":{"time":[%s],%q:[%s]}}`, strings.Join(times, ","), key, strings.Join(values, ","))
	return weather.Document{Body: []byte(body), Date: now}, nil
}

func (p *stubProvider) FetchCurrent(context.Context, weather.Location) (weather.Document, error) {
	return weather.Document{Body: []byte(`{"current":{"time":"2024-06-15T12:00","temperature_2m":18.5}}`)}, nil
}

func (p *stubProvider) FetchDaily(_ context.Context, _, _ float64, days int) (weather.DailySeries, error) {
	p.days = append(p.days, days)
	return weather.DailySeries{Dates: []string{"2024-06-15"}, TempMax: []*float64{series.Float(21)}, PrecipitationProbability: []*int{nil}}, nil
}

func (p *stubProvider) Search(context.Context, string, int) ([]weather.Location, error) {
	return nil, nil
}

func newTestApp(t *testing.T, p *stubProvider) *fiber.App {
	t.Helper()
	memStore := store.NewMemoryStore(0, 0)
	if err := memStore.Save(context.Background(), weather.Location{ID: "krk", Name: "Kraków", Latitude: 50.06, Longitude: 19.94}); err != nil {
		t.Fatalf("save location: %v", err)
	}
	svc := weather.NewService(memStore, memStore, p,
		weather.WithClock(func() time.Time { return now }),
		weather.WithPlanner(series.Planner{Now: func() time.Time { return now }, RecentDays: 7}))

	app := NewApp(Options{Metrics: metrics.NewCollector("test")})
	RegisterRoutes(app, svc)
	return app
}

func do(t *testing.T, app *fiber.App, method, target string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	_ = json.Unmarshal(body, &out)
	return resp, out
}

func TestHistoryValidation(t *testing.T) {
	app := newTestApp(t, &stubProvider{})

	cases := map[string]int{
		"/api/v1/weather/history?from=2024-06-14T00:00:00Z&to=2024-06-14T03:00:00Z":                    http.StatusBadRequest,
		"/api/v1/weather/history?locationId=krk&to=2024-06-14T03:00:00Z":                               http.StatusBadRequest,
		"/api/v1/weather/history?locationId=krk&from=2024-06-14T03:00:00Z&to=2024-06-14T03:00:00Z":     http.StatusBadRequest,
		"/api/v1/weather/history?locationId=krk&from=2024-06-14T04:00:00Z&to=2024-06-14T03:00:00Z":     http.StatusBadRequest,
		"/api/v1/weather/history?locationId=krk&from=yesterday&to=2024-06-14T03:00:00Z":                http.StatusBadRequest,
		"/api/v1/weather/history?locationId=nowhere&from=2024-06-14T00:00:00Z&to=2024-06-14T03:00:00Z": http.StatusNotFound,
	}
	for target, want := range cases {
		resp, body := do(t, app, http.MethodGet, target)
		if resp.StatusCode != want {
			t.Fatalf("%s: expected status %d, got %d", target, want, resp.StatusCode)
		}
		if body["error"] != true {
			t.Fatalf("%s: expected error body, got %v", target, body)
		}
	}
}

func TestHistoryReturnsBucketedPoints(t *testing.T) {
	app := newTestApp(t, &stubProvider{})

	resp, body := do(t, app, http.MethodGet,
		"/api/v1/weather/history?locationId=krk&from=2024-06-14T00:00:00Z&to=2024-06-14T05:00:00Z&interval=3h")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	points, ok := body["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("expected 2 points, got %v", body["points"])
	}
	first := points[0].(map[string]any)
	if first["time"] != "2024-06-14T00:00:00Z" {
		t.Fatalf("unexpected first time %v", first["time"])
	}
	if first["temperature"] != 10.0 {
		t.Fatalf("unexpected temperature %v", first["temperature"])
	}
	if v, present := first["humidity"]; !present || v != nil {
		t.Fatalf("expected explicit null humidity, got %v (present=%v)", v, present)
	}
	if body["source"] != weather.SourceOpenMeteo || body["interval"] != "3h" {
		t.Fatalf("unexpected envelope %v", body)
	}
}

func TestLiveWindowLast24h(t *testing.T) {
	app := newTestApp(t, &stubProvider{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/air-quality/live/krk/last24h")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := len(body["series"].([]any)); got != 24 {
		t.Fatalf("expected 24 slots, got %d", got)
	}
	avg := body["averages"].(map[string]any)
	if avg["pm10"] != 10.0 {
		t.Fatalf("unexpected pm10 average %v", avg["pm10"])
	}
	if _, hasTime := avg["time"]; hasTime {
		t.Fatalf("averages should not carry a time")
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/air-quality/history/krk/last24h")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := len(body["series"].([]any)); got == 0 {
		t.Fatalf("expected stored points after live fetch")
	}
}

func TestLiveWindowDegradesWhenProviderFails(t *testing.T) {
	app := newTestApp(t, &stubProvider{failHourly: true})

	resp, body := do(t, app, http.MethodGet,
		"/api/v1/air-quality/live?locationId=krk&from=2024-06-14T12:00:00Z&to=2024-06-15T12:00:00Z")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := len(body["series"].([]any)); got != 0 {
		t.Fatalf("expected empty series, got %d", got)
	}
}

func TestCurrentWeather(t *testing.T) {
	app := newTestApp(t, &stubProvider{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/weather/current?locationId=krk")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	cur := body["current"].(map[string]any)
	if cur["temperature"] != 18.5 {
		t.Fatalf("unexpected temperature %v", cur["temperature"])
	}

	resp, _ = do(t, app, http.MethodGet, "/api/v1/weather/current")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestForecastDailyValidation(t *testing.T) {
	p := &stubProvider{}
	app := newTestApp(t, p)

	resp, _ := do(t, app, http.MethodGet, "/api/v1/forecast/daily?lon=20")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	resp, _ = do(t, app, http.MethodGet, "/api/v1/forecast/daily?lat=120&lon=20")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp, _ = do(t, app, http.MethodGet, "/api/v1/forecast/daily?lat=50&lon=20&days=30")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if len(p.days) != 1 || p.days[0] != 16 {
		t.Fatalf("expected days clamped to 16, got %v", p.days)
	}
}

func TestSearchValidation(t *testing.T) {
	app := newTestApp(t, &stubProvider{})

	resp, _ := do(t, app, http.MethodGet, "/api/v1/locations/search?query=")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	resp, _ = do(t, app, http.MethodGet, "/api/v1/locations/search?query=krak&count=0")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, &stubProvider{})

	resp, body := do(t, app, http.MethodGet, "/health")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", resp.StatusCode, body)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "test_api_requests_total") {
		t.Fatalf("unexpected metrics response %d", resp.StatusCode)
	}
}
