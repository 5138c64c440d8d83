package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/env-timeseries/internal/common"
	"github.com/i474232898/env-timeseries/internal/store"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// FetchInterval controls how often we refresh current weather for each tracked location.
	FetchInterval time.Duration

	// Place names to track, resolved through geocoding at start-up.
	Locations []string

	StoreBackend store.Backend
	StoreDSN     string

	// In-memory store retention.
	StoreMaxHistory int           // max number of points per series (0 = unlimited)
	StoreMaxAge     time.Duration // max age of points (0 = unlimited)

	// RecentDays is how far back the forecast endpoint serves data.
	RecentDays int

	ProviderRPS        float64
	ProviderBurst      int
	ProviderMaxRetries int
	ChunkConcurrency   int

	LogLevel       string
	LogDevelopment bool
	MetricsEnabled bool
}

// SetDefaults registers every setting with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("fetch_interval", "15m")
	v.SetDefault("weather_locations", "")
	v.SetDefault("store_backend", string(store.BackendMemory))
	v.SetDefault("store_dsn", "env-timeseries.db")
	v.SetDefault("store_max_history", 0)
	v.SetDefault("store_max_age", "0s")
	v.SetDefault("recent_days", 7)
	v.SetDefault("provider_rps", 5.0)
	v.SetDefault("provider_burst", 5)
	v.SetDefault("provider_max_retries", 0)
	v.SetDefault("chunk_concurrency", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("metrics_enabled", true)
}

// New returns a viper instance reading the environment, with defaults set.
// CONFIG_FILE, when set, names an additional config file.
func New() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads configuration from .env, the environment and an optional
// config file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	v, err := New()
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper builds and validates an AppConfig.
func FromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:               v.GetString("port"),
		StoreDSN:           v.GetString("store_dsn"),
		StoreMaxHistory:    v.GetInt("store_max_history"),
		RecentDays:         v.GetInt("recent_days"),
		ProviderRPS:        v.GetFloat64("provider_rps"),
		ProviderBurst:      v.GetInt("provider_burst"),
		ProviderMaxRetries: v.GetInt("provider_max_retries"),
		ChunkConcurrency:   v.GetInt("chunk_concurrency"),
		LogLevel:           v.GetString("log_level"),
		LogDevelopment:     v.GetBool("log_development"),
		MetricsEnabled:     v.GetBool("metrics_enabled"),
		Locations:          common.SplitList(v.GetString("weather_locations")),
	}

	var err error
	if cfg.HTTPTimeout, err = duration(v, "http_timeout"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = duration(v, "fetch_interval"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = duration(v, "store_max_age"); err != nil {
		return nil, err
	}
	if cfg.StoreBackend, err = store.ParseBackend(v.GetString("store_backend")); err != nil {
		return nil, fmt.Errorf("invalid STORE_BACKEND: %w", err)
	}

	if cfg.FetchInterval <= 0 {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: must be positive")
	}
	if cfg.RecentDays <= 0 {
		return nil, fmt.Errorf("invalid RECENT_DAYS: must be positive")
	}
	if cfg.ChunkConcurrency <= 0 {
		return nil, fmt.Errorf("invalid CHUNK_CONCURRENCY: must be positive")
	}
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: must not be negative")
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return d, nil
}
