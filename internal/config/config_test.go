package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/env-timeseries/internal/store"
)

func TestDefaults(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.FetchInterval)
	assert.Equal(t, store.BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 7, cfg.RecentDays)
	assert.Equal(t, 0, cfg.ProviderMaxRetries)
	assert.Equal(t, 2, cfg.ChunkConcurrency)
	assert.True(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.Locations)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WEATHER_LOCATIONS", "Kraków, Gdańsk,,")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("FETCH_INTERVAL", "5m")
	t.Setenv("PROVIDER_RPS", "2.5")

	v, err := New()
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kraków", "Gdańsk"}, cfg.Locations)
	assert.Equal(t, store.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 2.5, cfg.ProviderRPS)
}

func TestInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"FETCH_INTERVAL":    "soon",
		"STORE_BACKEND":     "oracle",
		"CHUNK_CONCURRENCY": "0",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			v, err := New()
			require.NoError(t, err)
			_, err = FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\nrecent_days: 3\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	v, err := New()
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3, cfg.RecentDays)
}
