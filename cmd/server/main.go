package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aminimarket/marketplace-backend/config"
	"github.com/aminimarket/marketplace-backend/internal/app/controller"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/internal/app/service"
	"github.com/aminimarket/marketplace-backend/internal/db"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/aminimarket/marketplace-backend/internal/queue"
	"github.com/aminimarket/marketplace-backend/internal/router"
	"github.com/aminimarket/marketplace-backend/internal/scheduler"
	"github.com/aminimarket/marketplace-backend/internal/storage"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/mailer"
	"github.com/aminimarket/marketplace-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Amini Market Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed bootstrap admin (optional)
	if err := db.SeedAdmin(
		os.Getenv("ADMIN_EMAIL"),
		os.Getenv("ADMIN_PASSWORD"),
		os.Getenv("ADMIN_NAME"),
	); err != nil {
		logger.Warn("Failed to seed admin user", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize redis (dispatch lock)
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize redis", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close redis connection", err)
		}
	}()

	// Initialize credential queue store
	store, err := queue.NewStore(cfg.Onboarding.QueueDir)
	if err != nil {
		logger.Fatal("Failed to initialize credential queue store", err)
	}

	// Initialize repositories
	merchantRepo := repository.NewMerchantRepository(db.GetDB())
	tokenRepo := repository.NewSetupTokenRepository(db.GetDB())
	adminRepo := repository.NewAdminRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		adminRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
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

	// Initialize storage
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	merchantController := controller.NewMerchantController(onboardingService, merchantRepo)
	documentController := controller.NewDocumentController(documentService)
	queueController := controller.NewQueueController(onboardingService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Start the credential dispatch scheduler
	dispatchScheduler := scheduler.NewDispatchScheduler(onboardingService, cfg.Onboarding.DispatchCron)
	if err := dispatchScheduler.Start(); err != nil {
		logger.Fatal("Failed to start dispatch scheduler", err)
	}
	defer dispatchScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		merchantController,
		documentController,
		queueController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
