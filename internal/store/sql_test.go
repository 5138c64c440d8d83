package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQL(context.Background(), BackendSQLite, filepath.Join(t.TempDir(), "test.db"), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	res, err := s.Migrate(-1)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, uint(1), res.To)
	return s
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{
		"":         BackendMemory,
		"memory":   BackendMemory,
		"SQLite":   BackendSQLite,
		"postgres": BackendPostgres,
		"mysql":    BackendMySQL,
	} {
		got, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseBackend("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestUpsertStatementPerBackend(t *testing.T) {
	sqlite := upsertStatement(BackendSQLite, "locations", []string{"id"}, []string{"id", "name"})
	assert.Equal(t, "INSERT INTO locations (id, name) VALUES (:id, :name) ON CONFLICT (id) DO UPDATE SET name = excluded.name", sqlite)

	my := upsertStatement(BackendMySQL, "locations", []string{"id"}, []string{"id", "name"})
	assert.Equal(t, "INSERT INTO locations (id, name) VALUES (:id, :name) ON DUPLICATE KEY UPDATE name = VALUES(name)", my)
}

func TestSQLStoreMigrateIsIdempotent(t *testing.T) {
	s := openSQLite(t)

	res, err := s.Migrate(-1)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = s.Migrate(0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestSQLStoreRoundTripKeepsNulls(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	p0 := series.NewPoint(base).With(series.Temperature, 1.5).With(series.Precipitation, 0)
	p1 := series.NewPoint(base.Add(time.Hour)).With(series.Humidity, 80)
	n, err := s.Upsert(ctx, "loc", weather.DatasetWeather, weather.SourceOpenMeteo, series.Series{p0, p1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadRange(ctx, "loc", weather.DatasetWeather, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1.5, *got[0].Get(series.Temperature))
	assert.Equal(t, 0.0, *got[0].Get(series.Precipitation))
	assert.Nil(t, got[0].Get(series.Humidity))
	assert.Nil(t, got[1].Get(series.Temperature))
	assert.Equal(t, 80.0, *got[1].Get(series.Humidity))
	assert.Equal(t, time.UTC, got[0].Time.Location())
}

func TestReadRangeHonoursSubSecondBounds(t *testing.T) {
	ctx := context.Background()
	stores := map[string]weather.Store{
		"sqlite": openSQLite(t),
		"memory": NewMemoryStore(0, 0),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := s.Upsert(ctx, "loc", weather.DatasetWeather, weather.SourceOpenMeteo,
				series.Series{series.NewPoint(base).With(series.Temperature, 3)})
			require.NoError(t, err)

			got, err := s.ReadRange(ctx, "loc", weather.DatasetWeather, base.Add(500*time.Millisecond), base.Add(time.Hour))
			require.NoError(t, err)
			assert.Empty(t, got)

			got, err = s.ReadRange(ctx, "loc", weather.DatasetWeather, base.Add(-time.Hour), base.Add(500*time.Millisecond))
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestSQLStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, err := s.Upsert(ctx, "loc", weather.DatasetAirQuality, weather.SourceOpenMeteo,
		series.Series{series.NewPoint(base).With(series.PM10, 10)})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "loc", weather.DatasetAirQuality, weather.SourceOpenMeteo,
		series.Series{series.NewPoint(base).With(series.PM10, 12)})
	require.NoError(t, err)

	got, err := s.ReadRange(ctx, "loc", weather.DatasetAirQuality, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.0, *got[0].Get(series.PM10))

	weatherRows, err := s.ReadRange(ctx, "loc", weather.DatasetWeather, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, weatherRows)
}

func TestSQLStoreLocations(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)

	loc := weather.Location{ID: "id-1", Name: "Kraków", Admin: "Małopolskie", Country: "PL", Latitude: 50.06, Longitude: 19.94}
	require.NoError(t, s.Save(ctx, loc))
	loc.Admin = "Lesser Poland"
	require.NoError(t, s.Save(ctx, loc))

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	found, err := s.FindByName(ctx, "KRAKÓW")
	require.NoError(t, err)
	assert.Equal(t, []weather.Location{loc}, found)
}

func TestOpenMemoryBackend(t *testing.T) {
	s, err := Open(context.Background(), BackendMemory, "", Options{MaxHistory: 3})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
	assert.NoError(t, s.Close())
}
