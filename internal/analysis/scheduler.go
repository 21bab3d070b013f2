package analysis

import (
	"context"
	"time"

	"github.com/brandsignal/compass/internal/logging"
)

// Scheduler drives periodic analysis runs for a fixed set of brands
type Scheduler struct {
	runner   *Runner
	brands   []string
	interval time.Duration
	logger   logging.Logger
	ticker   *time.Ticker
	stopChan chan struct{}
}

func NewScheduler(runner *Runner, brands []string, interval time.Duration, logger logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = 2 * time.Hour
	}
	return &Scheduler{
		runner:   runner,
		brands:   brands,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic runs and schedules an initial pass shortly after
// service startup
func (s *Scheduler) Start() {
	s.logger.WithFields(logging.Fields{
		"interval": s.interval,
		"brands":   len(s.brands),
	}).Info("Starting analysis scheduler")

	s.ticker = time.NewTicker(s.interval)
	go s.loop()

	go func() {
		time.Sleep(10 * time.Second)
		s.runAll()
	}()
}

// Stop halts the periodic runs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping analysis scheduler")
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopChan)
}

func (s *Scheduler) loop() {
	for {
		select {
		case <-s.ticker.C:
			s.runAll()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) runAll() {
	for _, brandID := range s.brands {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if _, err := s.runner.Run(ctx, brandID); err != nil {
			s.logger.WithError(err).WithField("brand_id", brandID).Error("Scheduled analysis run failed")
		}
		cancel()
	}
}
