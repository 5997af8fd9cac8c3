package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aminimarket/marketplace-backend/config"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/internal/app/service"
	"github.com/aminimarket/marketplace-backend/internal/db"
	"github.com/aminimarket/marketplace-backend/internal/queue"
	"github.com/aminimarket/marketplace-backend/internal/scheduler"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/mailer"
	"github.com/aminimarket/marketplace-backend/pkg/redis"
)

// Dispatch performs a single drain of the pending credential queue and exits.
// Meant for cron-less deployments and manual resends after a partial failure.
func main() {
	force := flag.Bool("force", false, "dispatch even if the queue is not due yet")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:  "info",
		Format: "console",
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer db.Close()

	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize redis", err)
	}
	defer redis.Close()

	store, err := queue.NewStore(cfg.Onboarding.QueueDir)
	if err != nil {
		logger.Fatal("Failed to initialize credential queue store", err)
	}

	merchantRepo := repository.NewMerchantRepository(db.GetDB())
	tokenRepo := repository.NewSetupTokenRepository(db.GetDB())
	tokenService := service.NewTokenService(tokenRepo)
	documentService := service.NewDocumentService(merchantRepo)
	onboardingService := service.NewOnboardingService(
		merchantRepo,
		tokenService,
		documentService,
		store,
		mailer.NewSMTPSender(&cfg.SMTP),
		cfg.Onboarding.BaseURL,
		cfg.Onboarding.InterSendDelay,
	)

	// Ctrl-C cancels the drain; the pending artifact stays on disk for resume
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *force {
		report, err := onboardingService.DispatchQueue(ctx, true)
		if err != nil {
			if errors.Is(err, service.ErrNoPendingQueue) {
				logger.Info("No pending credential queue, nothing to do")
				return
			}
			if errors.Is(err, service.ErrDispatchCancelled) {
				logger.Warn("Dispatch interrupted, queue remains pending", map[string]interface{}{
					"successes": report.Successes(),
					"failures":  report.Failures(),
				})
				os.Exit(1)
			}
			logger.Fatal("Dispatch failed", err)
		}
		logger.Info("Dispatch complete", map[string]interface{}{
			"successes": report.Successes(),
			"failures":  report.Failures(),
		})
		return
	}

	// The unforced path goes through the scheduler's locked pass so two
	// overlapping invocations cannot drain the same queue twice.
	scheduler.NewDispatchScheduler(onboardingService, cfg.Onboarding.DispatchCron).RunOnce(ctx)
}
