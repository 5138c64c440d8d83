package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/env-timeseries/internal/weather"
)

// Refresher is the part of the service the scheduler drives.
type Refresher interface {
	FetchCurrent(ctx context.Context, locationID string) (weather.Current, error)
}

// Scheduler periodically refreshes current weather for tracked locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	locations []weather.Location
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(locations []weather.Location, interval time.Duration, service Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		locations: locations,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every tracked location concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.logger.Debug("scheduler: running current weather job", zap.Int("locations", len(s.locations)))

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if _, err := s.service.FetchCurrent(ctx, loc.Key()); err != nil {
				s.logger.Warn("scheduler: refresh failed",
					zap.String("location_id", loc.Key()),
					zap.String("name", loc.Name),
					zap.Error(err))
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("scheduler: completed current weather job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
