package weather

import (
	"context"
	"time"

	"github.com/i474232898/env-timeseries/internal/series"
)

// Document is a raw provider response plus the upstream clock, when known.
type Document struct {
	Body []byte
	Date time.Time
}

// HourlyRequest asks for the hourly arrays of a dataset over [Start, End].
// Weather requests use whole dates; air-quality requests use hour bounds.
type HourlyRequest struct {
	Location Location
	Dataset  Dataset
	Start    time.Time
	End      time.Time
	Mode     series.Mode
}

// HourlyProvider fetches hourly parallel-array documents.
type HourlyProvider interface {
	Name() string
	FetchHourly(ctx context.Context, req HourlyRequest) (Document, error)
}

// CurrentProvider fetches the latest conditions for a location.
type CurrentProvider interface {
	FetchCurrent(ctx context.Context, loc Location) (Document, error)
}

// DailyProvider fetches multi-day forecasts.
type DailyProvider interface {
	FetchDaily(ctx context.Context, lat, lon float64, days int) (DailySeries, error)
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	Search(ctx context.Context, name string, count int) ([]Location, error)
}

// Provider is everything the service needs from an upstream source.
type Provider interface {
	HourlyProvider
	CurrentProvider
	DailyProvider
	Geocoder
}

// Store is the contract the memory store and the SQL store satisfy.
// Writes are upserts keyed by (location, dataset, time).
type Store interface {
	ReadRange(ctx context.Context, locationID string, ds Dataset, from, to time.Time) (series.Series, error)
	Upsert(ctx context.Context, locationID string, ds Dataset, source string, s series.Series) (int, error)
}

// LocationDirectory owns Location records.
// Get returns ErrLocationNotFound for unknown ids.
type LocationDirectory interface {
	Get(ctx context.Context, id string) (Location, error)
	FindByName(ctx context.Context, name string) ([]Location, error)
	Save(ctx context.Context, loc Location) error
}
