package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/env-timeseries/internal/metrics"
	"github.com/i474232898/env-timeseries/internal/series"
)

// Service orchestrates providers, the store and the series engine.
type Service struct {
	store     Store
	locations LocationDirectory
	provider  Provider

	planner          series.Planner
	chunkConcurrency int
	cities           []City
	now              func() time.Time

	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPlanner replaces the window planner.
func WithPlanner(p series.Planner) Option {
	return func(s *Service) { s.planner = p }
}

// WithChunkConcurrency bounds concurrent chunk fetches per request.
func WithChunkConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkConcurrency = n
		}
	}
}

// WithCities replaces the snapshot city list.
func WithCities(cities []City) Option {
	return func(s *Service) {
		if len(cities) > 0 {
			s.cities = cities
		}
	}
}

// WithClock sets the clock used for relative windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(store Store, locations LocationDirectory, provider Provider, opts ...Option) *Service {
	s := &Service{
		store:            store,
		locations:        locations,
		provider:         provider,
		planner:          series.NewPlanner(series.RecentDays),
		chunkConcurrency: 2,
		cities:           DefaultCities,
		now:              time.Now,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

func (s *Service) requireLocation(ctx context.Context, id string) (Location, error) {
	loc, err := s.locations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return Location{}, err
		}
		return Location{}, &StoreError{Op: "get location", Err: err}
	}
	return loc, nil
}

// fetchChunks fetches and parses every chunk concurrently. Outcomes keep the
// chunk order regardless of completion order.
func (s *Service) fetchChunks(ctx context.Context, loc Location, ds Dataset, spec series.FieldSpec, chunks []series.Chunk, from, to time.Time) []ChunkOutcome {
	outcomes := make([]ChunkOutcome, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.chunkConcurrency)
	for i, ch := range chunks {
		outcomes[i].Chunk = ch
		g.Go(func() error {
			doc, err := s.provider.FetchHourly(gctx, HourlyRequest{
				Location: loc,
				Dataset:  ds,
				Start:    ch.Start,
				End:      ch.End,
				Mode:     ch.Mode,
			})
			if err != nil {
				outcomes[i].Err = &ProviderError{Provider: s.provider.Name(), Chunk: ch, Err: err}
				return nil
			}
			points, err := series.Parse(doc.Body, spec, from, to)
			if err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Points = points
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// settle turns chunk outcomes into the fetched series list. Failed chunks
// degrade to nothing, except a parse failure on the only chunk.
func (s *Service) settle(loc Location, ds Dataset, outcomes []ChunkOutcome) ([]series.Series, error) {
	fetched := make([]series.Series, 0, len(outcomes))
	for _, o := range outcomes {
		s.metrics.RecordChunk(string(ds), o.Chunk.Mode.String(), o.Degraded())
		if !o.Degraded() {
			fetched = append(fetched, o.Points)
			continue
		}

		var perr *series.ParseError
		if len(outcomes) == 1 && errors.As(o.Err, &perr) {
			return nil, fmt.Errorf("fetch %s for %s: %w", ds, loc.Key(), o.Err)
		}
		s.logger.Warn("chunk degraded to zero points",
			zap.String("location_id", loc.Key()),
			zap.String("dataset", string(ds)),
			zap.Stringer("chunk", o.Chunk),
			zap.Error(o.Err))
	}
	return fetched, nil
}

// persist upserts points and only logs failures.
func (s *Service) persist(ctx context.Context, loc Location, ds Dataset, points series.Series) {
	if len(points) == 0 {
		return
	}
	n, err := s.store.Upsert(ctx, loc.Key(), ds, SourceOpenMeteo, points)
	if err != nil {
		s.metrics.RecordStoreError("upsert")
		s.logger.Warn("store write failed; continuing with fetched data",
			zap.String("location_id", loc.Key()),
			zap.String("dataset", string(ds)),
			zap.Int("points", len(points)),
			zap.Error(err))
		return
	}
	s.metrics.RecordUpsert(string(ds), n)
}

func (s *Service) readRange(ctx context.Context, loc Location, ds Dataset, from, to time.Time) (series.Series, error) {
	stored, err := s.store.ReadRange(ctx, loc.Key(), ds, from, to)
	if err != nil {
		s.metrics.RecordStoreError("read")
		return nil, &StoreError{Op: "read " + string(ds), Err: err}
	}
	return stored, nil
}
