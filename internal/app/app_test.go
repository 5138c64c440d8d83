package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/config"
	"github.com/i474232898/env-timeseries/internal/store"
	"github.com/i474232898/env-timeseries/internal/weather"
)

type geocodeOnly struct{}

func (geocodeOnly) Name() string { return "geocode-only" }

func (geocodeOnly) FetchHourly(context.Context, weather.HourlyRequest) (weather.Document, error) {
	return weather.Document{}, errors.New("offline")
}

func (geocodeOnly) FetchCurrent(context.Context, weather.Location) (weather.Document, error) {
	return weather.Document{}, errors.New("offline")
}

func (geocodeOnly) FetchDaily(context.Context, float64, float64, int) (weather.DailySeries, error) {
	return weather.DailySeries{}, errors.New("offline")
}

func (geocodeOnly) Search(_ context.Context, name string, _ int) ([]weather.Location, error) {
	switch name {
	case "Atlantis":
		return nil, nil
	case "Flaky":
		return nil, errors.New("geocoding 503")
	}
	return []weather.Location{{Name: name, Country: "PL", Latitude: 50, Longitude: 20}}, nil
}

func testConfig(t *testing.T, backend store.Backend) *config.AppConfig {
	t.Helper()
	v, err := config.New()
	require.NoError(t, err)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	cfg.StoreBackend = backend
	cfg.StoreDSN = filepath.Join(t.TempDir(), "app.db")
	cfg.Locations = []string{"Kraków", "Atlantis"}
	return cfg
}

func TestNewWiresSQLiteStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, store.BackendSQLite),
		WithProvider(geocodeOnly{}), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.NotNil(t, a.Metrics)
	assert.NoError(t, a.Health(context.Background()))

	resp, err := a.HTTP().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSchedulerResolvesConfiguredLocations(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, store.BackendMemory),
		WithProvider(geocodeOnly{}), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	sched, err := a.Scheduler(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sched)

	found, err := a.Store.FindByName(context.Background(), "kraków")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.NotEmpty(t, found[0].ID)
}

func TestSchedulerSkipsLocationsThatFailToGeocode(t *testing.T) {
	cfg := testConfig(t, store.BackendMemory)
	cfg.Locations = []string{"Flaky", "Kraków"}

	a, err := New(context.Background(), cfg, WithProvider(geocodeOnly{}), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	sched, err := a.Scheduler(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sched)

	found, err := a.Store.FindByName(context.Background(), "Kraków")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = a.Store.FindByName(context.Background(), "Flaky")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNewRejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t, store.BackendMemory)
	cfg.LogLevel = "loud"

	_, err := New(context.Background(), cfg, WithProvider(geocodeOnly{}))
	assert.Error(t, err)
}
