package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 30 * time.Second

// Service delivers "events added" notifications in the background so the
// request that created the events never waits on the mail provider.
type Service struct {
	emailNotifier Notifier
	logger        *slog.Logger
	wg            sync.WaitGroup
}

// NewService creates a notification service
func NewService(emailNotifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		emailNotifier: emailNotifier,
		logger:        logger,
	}
}

// NotifyEventsAdded queues an email listing items for recipient. Failures
// are logged and never reach the caller.
func (s *Service) NotifyEventsAdded(ctx context.Context, recipient string, items []Item) {
	if len(items) == 0 || recipient == "" {
		return
	}
	if !s.IsEmailAvailable() {
		s.logger.Debug("email notifications not configured")
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		if err := s.emailNotifier.Send(sendCtx, items, recipient); err != nil {
			s.logger.Warn("notification failed", "notifier", s.emailNotifier.Name(), "user", recipient, "error", err)
			return
		}
		s.logger.Info("notification sent", "notifier", s.emailNotifier.Name(), "user", recipient, "events", len(items))
	}()
}

// Wait blocks until queued notifications have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// IsEmailAvailable returns true if email notifications can be used
func (s *Service) IsEmailAvailable() bool {
	return s.emailNotifier != nil && s.emailNotifier.IsConfigured()
}
