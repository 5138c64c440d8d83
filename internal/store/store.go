package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/metrics"
	"github.com/i474232898/env-timeseries/internal/weather"
)

// Store is a measurement store that also owns location records.
type Store interface {
	weather.Store
	weather.LocationDirectory
	Close() error
}

// Options configures Open.
type Options struct {
	// Memory store retention.
	MaxHistory int
	MaxAge     time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Open returns the store for backend. SQL backends are migrated to the latest
// schema version.
func Open(ctx context.Context, backend Backend, dsn string, opts Options) (Store, error) {
	if backend == BackendMemory {
		return NewMemoryStore(opts.MaxHistory, opts.MaxAge), nil
	}
	s, err := OpenSQL(ctx, backend, dsn, opts.Logger, opts.Metrics)
	if err != nil {
		return nil, err
	}
	if _, err := s.Migrate(-1); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
