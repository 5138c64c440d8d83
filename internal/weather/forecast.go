package weather

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minForecastDays = 1
	maxForecastDays = 16
	snapshotDays    = 7
)

// DailyForecast returns the daily tmax and precipitation probability for
// the coordinates. days is clamped to 1..16.
func (s *Service) DailyForecast(ctx context.Context, lat, lon float64, days int) (DailySeries, error) {
	days = max(minForecastDays, min(days, maxForecastDays))
	daily, err := s.provider.FetchDaily(ctx, lat, lon, days)
	if err != nil {
		return DailySeries{}, &ProviderError{Provider: s.provider.Name(), Err: err}
	}
	return daily, nil
}

// CitySnapshot summarizes the seven-day forecast of every configured city.
// A failed city keeps null values.
func (s *Service) CitySnapshot(ctx context.Context, label string) (Snapshot, error) {
	r := ParseRange(label)
	out := make([]CitySnapshot, len(s.cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.chunkConcurrency)
	for i, c := range s.cities {
		out[i].City = c
		g.Go(func() error {
			daily, err := s.provider.FetchDaily(gctx, c.Lat, c.Lon, snapshotDays)
			if err != nil {
				s.logger.Warn("snapshot city failed",
					zap.String("city", c.ID),
					zap.Error(err))
				return nil
			}
			out[i].TempMax, out[i].PrecipitationProbability = SummarizeDaily(daily, r)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Range: r.Key, GeneratedAt: s.Now(), Cities: out}, nil
}
