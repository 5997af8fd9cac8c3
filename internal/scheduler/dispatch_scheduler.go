package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/service"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/redis"
	"github.com/robfig/cron/v3"
)

// dispatchLockTTL must outlive the longest plausible drain so an expired lock
// means a dead dispatcher, not a slow one.
const dispatchLockTTL = 30 * time.Minute

// DispatchScheduler drains the pending credential queue on a cron schedule.
// Cross-process exclusion (two servers, overlapping cron triggers) goes
// through the redis dispatch lock.
type DispatchScheduler struct {
	cron       *cron.Cron
	onboarding service.OnboardingService
	spec       string
}

func NewDispatchScheduler(onboarding service.OnboardingService, spec string) *DispatchScheduler {
	return &DispatchScheduler{
		cron:       cron.New(),
		onboarding: onboarding,
		spec:       spec,
	}
}

// Start registers the cron entry and starts the scheduler
func (s *DispatchScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		logger.Error("Failed to add cron job for credential dispatch", err)
		return err
	}

	s.cron.Start()
	logger.Info("Credential dispatch scheduler started", map[string]interface{}{
		"schedule": s.spec,
	})
	return nil
}

// RunOnce performs a single locked dispatch pass. Queues that are absent or
// not yet due are skipped quietly.
func (s *DispatchScheduler) RunOnce(ctx context.Context) {
	holder := fmt.Sprintf("dispatcher-%d", os.Getpid())

	acquired, err := redis.AcquireDispatchLock(ctx, holder, dispatchLockTTL)
	if err != nil {
		logger.Error("Failed to acquire dispatch lock, skipping pass", err)
		return
	}
	if !acquired {
		logger.Info("Another dispatcher holds the lock, skipping pass", nil)
		return
	}
	defer func() {
		if err := redis.ReleaseDispatchLock(ctx, holder); err != nil {
			logger.Error("Failed to release dispatch lock", err)
		}
	}()

	report, err := s.onboarding.DispatchQueue(ctx, false)
	if err != nil {
		if errors.Is(err, service.ErrNoPendingQueue) || errors.Is(err, service.ErrQueueNotDue) {
			logger.Debug("Nothing to dispatch", map[string]interface{}{
				"reason": err.Error(),
			})
			return
		}
		if errors.Is(err, service.ErrDispatchCancelled) {
			// The pending artifact stays on disk; record how far the drain got
			logger.Warn("Credential dispatch cancelled mid-drain", map[string]interface{}{
				"successes": report.Successes(),
				"failures":  report.Failures(),
			})
			return
		}
		logger.Error("Scheduled credential dispatch failed", err)
		return
	}

	logger.Info("Scheduled credential dispatch complete", map[string]interface{}{
		"successes": report.Successes(),
		"failures":  report.Failures(),
	})
}

// Stop stops the scheduler
func (s *DispatchScheduler) Stop() {
	logger.Info("Stopping credential dispatch scheduler...")
	s.cron.Stop()
	logger.Info("Credential dispatch scheduler stopped")
}
