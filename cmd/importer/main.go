package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aminimarket/marketplace-backend/config"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/internal/app/service"
	"github.com/aminimarket/marketplace-backend/internal/db"
	"github.com/aminimarket/marketplace-backend/internal/feed"
	"github.com/aminimarket/marketplace-backend/internal/queue"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/mailer"
)

// Importer loads a merchant feed file and either upserts the records
// (idempotent sync, no credentials) or creates accounts in bulk and
// enqueues one credential delivery batch.
func main() {
	var (
		feedPath     = flag.String("feed", "", "path to the merchant feed file (.xlsx)")
		mode         = flag.String("mode", "upsert", "import mode: upsert or batch-create")
		scheduledFor = flag.String("scheduled-for", "", "RFC3339 time the credential batch becomes due (batch-create only, default now)")
		autoVerify   = flag.Bool("auto-verify", false, "mark created accounts as not needing manual review (batch-create only)")
	)
	flag.Parse()

	if *feedPath == "" {
		fmt.Fprintln(os.Stderr, "usage: importer -feed merchants.xlsx [-mode upsert|batch-create]")
		os.Exit(2)
	}

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

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

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

	records, err := feed.ParseXLSX(*feedPath)
	if err != nil {
		logger.Fatal("Failed to parse feed file", err)
	}

	switch *mode {
	case "upsert":
		report, err := onboardingService.UpsertFromFeed(records, "importer")
		if err != nil {
			logger.Fatal("Feed upsert failed", err)
		}
		logger.Info("Feed upsert complete", map[string]interface{}{
			"created": report.Created,
			"updated": report.Updated,
			"failed":  report.Failed,
		})
		if report.Failed > 0 {
			os.Exit(1)
		}

	case "batch-create":
		due := time.Now()
		if *scheduledFor != "" {
			due, err = time.Parse(time.RFC3339, *scheduledFor)
			if err != nil {
				logger.Fatal("Invalid -scheduled-for value", err)
			}
		}

		inputs := make([]service.CreateMerchantInput, 0, len(records))
		for _, r := range records {
			inputs = append(inputs, service.CreateMerchantInput{
				BusinessName: r.BusinessName,
				Email:        r.Email,
				Phone:        r.Phone,
				OwnerName:    r.OwnerName,
				ExternalID:   r.ExternalID,
			})
		}

		report, err := onboardingService.CreateMerchantsBatch(inputs, due, service.CreateOptions{
			CreatedBy:    "importer",
			Programmatic: true,
			AutoVerify:   *autoVerify,
		})
		if err != nil {
			if report != nil {
				logger.Error("Batch create finished but the queue could not be written", err, map[string]interface{}{
					"successes": report.Successes,
					"failures":  report.Failures,
				})
				os.Exit(1)
			}
			logger.Fatal("Batch create failed", err)
		}
		logger.Info("Batch create complete, credential queue written", map[string]interface{}{
			"successes":     report.Successes,
			"failures":      report.Failures,
			"scheduled_for": due,
		})
		if report.Failures > 0 {
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q, want upsert or batch-create\n", *mode)
		os.Exit(2)
	}
}
