// Package jobs runs periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// SessionCleaner removes expired login sessions.
type SessionCleaner interface {
	CleanupExpiredSessions() (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// AddSessionCleanup registers the expired session sweep. The schedule uses the
// standard five-field format and descriptors such as "@hourly".
func (s *Scheduler) AddSessionCleanup(schedule string, cleaner SessionCleaner) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.CleanupSessions(cleaner) }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	s.logger.Info("session cleanup scheduled", "schedule", schedule)
	return nil
}

// CleanupSessions runs one sweep and logs the result.
func (s *Scheduler) CleanupSessions(cleaner SessionCleaner) {
	n, err := cleaner.CleanupExpiredSessions()
	if err != nil {
		s.logger.Error("session cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.logger.Info("job scheduler started", "jobs", s.Jobs())
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
