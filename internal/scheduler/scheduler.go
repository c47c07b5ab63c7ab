package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Refresher is the part of weather.Service the warmer needs.
type Refresher interface {
	Refresh(ctx context.Context, city string) (weather.Response, error)
}

// Scheduler keeps the cache warm by periodically refreshing configured cities.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	service    Refresher
	cities     []string
	interval   time.Duration
	jobTimeout time.Duration
	log        *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(cities []string, interval, jobTimeout time.Duration, service Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler:  s,
		service:    service,
		cities:     cities,
		interval:   interval,
		jobTimeout: jobTimeout,
		log:        logger.GetLogger("scheduler"),
	}
}

// Start schedules the warm-up job, runs it once immediately, and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.log.Info("no warm cities configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 9 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every configured city concurrently and waits for all of them.
// Failures are logged and do not stop the other refreshes.
func (s *Scheduler) RunOnce() {
	s.log.Infow("running cache warm job", "cities", len(s.cities))

	var wg sync.WaitGroup
	for _, city := range s.cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			if _, err := s.service.Refresh(ctx, city); err != nil {
				s.log.Warnw("warm refresh failed", "city", city, "error", err)
			}
		}()
	}
	wg.Wait()
	s.log.Info("completed cache warm job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
