package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

type seriesKey struct {
	locationID string
	dataset    weather.Dataset
}

// seriesHistory holds one ascending series.
type seriesHistory struct {
	points series.Series
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store
// and weather.LocationDirectory.
type MemoryStore struct {
	mu sync.RWMutex

	data      map[seriesKey]*seriesHistory
	locations map[string]weather.Location

	// retention configuration
	maxHistory int           // max number of points per series
	maxAge     time.Duration // optional max age for points
	now        func() time.Time
}

var (
	_ weather.Store             = (*MemoryStore)(nil)
	_ weather.LocationDirectory = (*MemoryStore)(nil)
)

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[seriesKey]*seriesHistory),
		locations:  make(map[string]weather.Location),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Upsert merges points into the series, replacing points at equal timestamps,
// and enforces retention.
func (s *MemoryStore) Upsert(_ context.Context, locationID string, ds weather.Dataset, _ string, points series.Series) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	key := seriesKey{locationID, ds}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &seriesHistory{}
		s.data[key] = history
	}
	history.points = series.Merge(history.points, points)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.points) > s.maxHistory {
		over := len(history.points) - s.maxHistory
		history.points = history.points[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := sort.Search(len(history.points), func(i int) bool {
			return !history.points[i].Time.Before(cutoff)
		})
		history.points = history.points[i:]
	}
	return len(points), nil
}

// ReadRange returns the points of a series between from and to (inclusive).
func (s *MemoryStore) ReadRange(_ context.Context, locationID string, ds weather.Dataset, from, to time.Time) (series.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[seriesKey{locationID, ds}]
	if !ok {
		return series.Series{}, nil
	}

	pts := history.points
	lo := sort.Search(len(pts), func(i int) bool { return !pts[i].Time.Before(from) })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Time.After(to) })
	if lo >= hi {
		return series.Series{}, nil
	}
	out := make(series.Series, hi-lo)
	copy(out, pts[lo:hi])
	return out, nil
}

// Get returns a location by id.
func (s *MemoryStore) Get(_ context.Context, id string) (weather.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[id]
	if !ok {
		return weather.Location{}, weather.ErrLocationNotFound
	}
	return loc, nil
}

// FindByName returns locations whose name matches case-insensitively.
func (s *MemoryStore) FindByName(_ context.Context, name string) ([]weather.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []weather.Location
	for _, loc := range s.locations {
		if strings.EqualFold(loc.Name, name) {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save inserts or replaces a location.
func (s *MemoryStore) Save(_ context.Context, loc weather.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.ID] = loc
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
