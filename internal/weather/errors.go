package weather

import (
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/env-timeseries/internal/series"
)

var (
	// ErrInvalidWindow is returned when from is not strictly before to.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrLocationNotFound is returned for unknown location ids.
	ErrLocationNotFound = errors.New("location not found")
)

// ProviderError wraps a failed upstream call.
type ProviderError struct {
	Provider string
	Chunk    series.Chunk
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Chunk.Start.IsZero() {
		return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s fetch %s: %v", e.Provider, e.Chunk, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ChunkOutcome is the result of fetching and parsing one chunk. A non-nil Err
// means the chunk contributed no points.
type ChunkOutcome struct {
	Chunk  series.Chunk
	Points series.Series
	Err    error
}

// Degraded reports whether the chunk failed.
func (o ChunkOutcome) Degraded() bool {
	return o.Err != nil
}

func validateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return fmt.Errorf("%w: from %s must be before to %s",
			ErrInvalidWindow, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	}
	return nil
}
