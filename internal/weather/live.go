package weather

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/env-timeseries/internal/series"
)

// liveSlots is the length of the continuous series returned by FetchLiveWindow.
const liveSlots = 24

// FetchLiveWindow fetches air quality for [from, to], stores it, merges it
// with stored points and returns the last 24 hours ending at the latest
// observed hour, gaps included, with rounded averages.
func (s *Service) FetchLiveWindow(ctx context.Context, locationID string, from, to time.Time) (LiveWindow, error) {
	if err := validateWindow(from, to); err != nil {
		return LiveWindow{}, err
	}
	loc, err := s.requireLocation(ctx, locationID)
	if err != nil {
		return LiveWindow{}, err
	}

	start, end := from.UTC().Truncate(time.Minute), to.UTC().Truncate(time.Minute)
	chunk := series.Chunk{Start: start, End: end, Mode: series.ModeCurrent}
	outcome := ChunkOutcome{Chunk: chunk}

	doc, err := s.provider.FetchHourly(ctx, HourlyRequest{
		Location: loc,
		Dataset:  DatasetAirQuality,
		Start:    start,
		End:      end,
		Mode:     series.ModeCurrent,
	})
	if err != nil {
		outcome.Err = &ProviderError{Provider: s.provider.Name(), Chunk: chunk, Err: err}
	} else {
		validTo := end
		// the upstream may return forecast hours; drop anything past its clock
		if !doc.Date.IsZero() && doc.Date.Before(validTo) {
			validTo = doc.Date
		}
		outcome.Points, outcome.Err = series.Parse(doc.Body, series.AirQualityHourly, start, validTo)
	}

	fetched, err := s.settle(loc, DatasetAirQuality, []ChunkOutcome{outcome})
	if err != nil {
		return LiveWindow{}, err
	}
	fresh := series.Merge(nil, fetched...)
	s.persist(ctx, loc, DatasetAirQuality, fresh)

	stored, err := s.readRange(ctx, loc, DatasetAirQuality, from, to)
	if err != nil {
		return LiveWindow{}, err
	}

	merged := series.Merge(stored, fresh)
	latest, ok := merged.Latest()
	if !ok {
		return LiveWindow{Series: series.Series{}}, nil
	}
	last := latest.Time.Truncate(time.Hour)
	continuous := series.FillGaps(merged, last.Add(-(liveSlots-1)*time.Hour), last)

	return LiveWindow{
		Averages: series.Averages(continuous, DatasetAirQuality.Fields()),
		Series:   continuous,
	}, nil
}

// StoredWindow returns stored air-quality points for [from, to] with their
// rounded averages, without calling the provider.
func (s *Service) StoredWindow(ctx context.Context, locationID string, from, to time.Time) (LiveWindow, error) {
	if err := validateWindow(from, to); err != nil {
		return LiveWindow{}, err
	}
	loc, err := s.requireLocation(ctx, locationID)
	if err != nil {
		return LiveWindow{}, err
	}
	stored, err := s.readRange(ctx, loc, DatasetAirQuality, from, to)
	if err != nil {
		return LiveWindow{}, err
	}
	if stored == nil {
		stored = series.Series{}
	}
	return LiveWindow{
		Averages: series.Averages(stored, DatasetAirQuality.Fields()),
		Series:   stored,
	}, nil
}

// LastDay returns the window covering the 24 hours before now.
func (s *Service) LastDay() (time.Time, time.Time) {
	to := s.Now()
	return to.Add(-24 * time.Hour), to
}

// IsClientError reports whether err stems from the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidWindow) || errors.Is(err, ErrLocationNotFound)
}
