package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/city"
)

const (
	defaultInterval = 15 * time.Minute
	refreshTimeout  = 30 * time.Second
)

// Refresher fetches and stores fresh weather for a city.
type Refresher interface {
	Refresh(ctx context.Context, c city.City) error
}

// Scheduler periodically warms the weather store for configured cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	cities    []city.City
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(cities []city.City, interval time.Duration, service Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		cities:    cities,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.logger.Info("scheduler: no warm cities configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every configured city concurrently and waits for all of
// them. Each city gets its own timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Debug("scheduler: running weather fetch job", zap.Int("cities", len(s.cities)))

	var wg sync.WaitGroup
	for _, c := range s.cities {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, refreshTimeout)
			defer cancel()

			if err := s.service.Refresh(cctx, c); err != nil {
				s.logger.Warn("scheduler: fetch failed",
					zap.String("city", c.Name),
					zap.Error(err),
				)
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("scheduler: completed weather fetch job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
