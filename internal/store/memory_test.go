package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func hourly(n int, f series.Field, start float64) series.Series {
	out := make(series.Series, n)
	for i := range out {
		out[i] = series.NewPoint(base.Add(time.Duration(i)*time.Hour)).With(f, start+float64(i))
	}
	return out
}

func TestMemoryStoreUpsertReplacesAtSameTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	_, err := s.Upsert(ctx, "a", weather.DatasetWeather, weather.SourceOpenMeteo, hourly(3, series.Temperature, 0))
	require.NoError(t, err)
	n, err := s.Upsert(ctx, "a", weather.DatasetWeather, weather.SourceOpenMeteo,
		series.Series{series.NewPoint(base.Add(time.Hour)).With(series.Temperature, 42)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.ReadRange(ctx, "a", weather.DatasetWeather, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 42.0, *got[1].Get(series.Temperature))
}

func TestMemoryStoreReadRangeIsInclusiveAndScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)
	_, err := s.Upsert(ctx, "a", weather.DatasetWeather, weather.SourceOpenMeteo, hourly(5, series.Temperature, 0))
	require.NoError(t, err)

	got, err := s.ReadRange(ctx, "a", weather.DatasetWeather, base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Time.Equal(base.Add(time.Hour)))
	assert.True(t, got[2].Time.Equal(base.Add(3*time.Hour)))

	other, err := s.ReadRange(ctx, "a", weather.DatasetAirQuality, base, base.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, other)

	missing, err := s.ReadRange(ctx, "b", weather.DatasetWeather, base, base.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMemoryStoreRetention(t *testing.T) {
	ctx := context.Background()

	byCount := NewMemoryStore(2, 0)
	_, err := byCount.Upsert(ctx, "a", weather.DatasetWeather, weather.SourceOpenMeteo, hourly(5, series.Temperature, 0))
	require.NoError(t, err)
	got, err := byCount.ReadRange(ctx, "a", weather.DatasetWeather, base, base.Add(10*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, *got[0].Get(series.Temperature))

	byAge := NewMemoryStore(0, 2*time.Hour)
	byAge.now = func() time.Time { return base.Add(4 * time.Hour) }
	_, err = byAge.Upsert(ctx, "a", weather.DatasetWeather, weather.SourceOpenMeteo, hourly(5, series.Temperature, 0))
	require.NoError(t, err)
	got, err = byAge.ReadRange(ctx, "a", weather.DatasetWeather, base, base.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMemoryStoreLocations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	_, err := s.Get(ctx, "x")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)

	loc := weather.Location{ID: "x", Name: "Łódź", Country: "PL", Latitude: 51.76, Longitude: 19.46}
	require.NoError(t, s.Save(ctx, loc))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	found, err := s.FindByName(ctx, "ŁÓDŹ")
	require.NoError(t, err)
	assert.Equal(t, []weather.Location{loc}, found)
}
