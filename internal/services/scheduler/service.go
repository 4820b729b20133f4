// Package scheduler runs the watchlist report generation on a cron
// schedule.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Service wraps a cron runner around a single recurring task.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	running bool
}

// NewService creates a scheduler service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the task under the cron expression and begins firing.
// Overlapping runs are prevented; a fire while the previous run is
// still in flight is skipped with a warning.
func (s *Service) Start(cronExpr string, task func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	var taskMu sync.Mutex
	inFlight := false
	_, err := s.cron.AddFunc(cronExpr, func() {
		taskMu.Lock()
		if inFlight {
			taskMu.Unlock()
			s.logger.Warn().Msg("Previous scheduled run still in flight, skipping")
			return
		}
		inFlight = true
		taskMu.Unlock()

		if err := task(); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled run failed")
		}

		taskMu.Lock()
		inFlight = false
		taskMu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("cron_expr", cronExpr).Msg("Scheduler started")
	return nil
}

// Stop halts the cron runner and waits for an in-flight run to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}
