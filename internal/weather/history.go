package weather

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/series"
)

// FetchCurrent fetches the latest conditions, stores them and returns them.
func (s *Service) FetchCurrent(ctx context.Context, locationID string) (Current, error) {
	loc, err := s.requireLocation(ctx, locationID)
	if err != nil {
		return Current{}, err
	}

	doc, err := s.provider.FetchCurrent(ctx, loc)
	if err != nil {
		return Current{}, &ProviderError{Provider: s.provider.Name(), Err: err}
	}
	point, err := series.ParseCurrent(doc.Body)
	if err != nil {
		return Current{}, fmt.Errorf("current weather for %s: %w", loc.Key(), err)
	}

	s.persist(ctx, loc, DatasetWeather, series.Series{point})
	return Current{Location: loc, Point: point, Source: SourceOpenMeteo}, nil
}

// FetchHistory returns the reconciled weather series for [from, to], bucketed
// by interval. Chunks that fail to fetch degrade to stored data only.
func (s *Service) FetchHistory(ctx context.Context, locationID string, from, to time.Time, interval string) (History, error) {
	if err := validateWindow(from, to); err != nil {
		return History{}, err
	}
	interval = series.NormalizeInterval(interval)
	loc, err := s.requireLocation(ctx, locationID)
	if err != nil {
		return History{}, err
	}

	chunks := s.planner.Plan(from, to)
	s.logger.Debug("planned history fetch",
		zap.String("location_id", loc.Key()),
		zap.Int("chunks", len(chunks)),
		zap.Time("from", from),
		zap.Time("to", to))

	outcomes := s.fetchChunks(ctx, loc, DatasetWeather, series.WeatherHourly, chunks, from, to)
	fetched, err := s.settle(loc, DatasetWeather, outcomes)
	if err != nil {
		return History{}, err
	}

	s.persist(ctx, loc, DatasetWeather, series.Merge(nil, fetched...))

	stored, err := s.readRange(ctx, loc, DatasetWeather, from, to)
	if err != nil {
		return History{}, err
	}

	merged := series.Merge(stored, fetched...)
	return History{
		Location: loc,
		Interval: interval,
		Points:   series.Aggregate(merged, series.ParseInterval(interval)),
		Source:   SourceOpenMeteo,
	}, nil
}
