//go:build database

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

// TestSQLStoreWithPostgres runs the store against a real PostgreSQL server.
func TestSQLStoreWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	s, err := Open(ctx, BackendPostgres, dsn, Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	loc := weather.Location{ID: "pg-1", Name: "Gdańsk", Country: "PL", Latitude: 54.35, Longitude: 18.65}
	require.NoError(t, s.Save(ctx, loc))
	found, err := s.FindByName(ctx, "gdańsk")
	require.NoError(t, err)
	assert.Equal(t, []weather.Location{loc}, found)

	pts := series.Series{
		series.NewPoint(base).With(series.PM25, 8),
		series.NewPoint(base.Add(time.Hour)).With(series.PM25, 9),
	}
	_, err = s.Upsert(ctx, loc.ID, weather.DatasetAirQuality, weather.SourceOpenMeteo, pts)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, loc.ID, weather.DatasetAirQuality, weather.SourceOpenMeteo,
		series.Series{series.NewPoint(base).With(series.PM25, 7)})
	require.NoError(t, err)

	got, err := s.ReadRange(ctx, loc.ID, weather.DatasetAirQuality, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 7.0, *got[0].Get(series.PM25))
	assert.Equal(t, 9.0, *got[1].Get(series.PM25))
}
