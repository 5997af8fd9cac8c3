package db

import (
	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/util"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.AdminUser{},
		&model.Merchant{},
		&model.MerchantDocument{},
		&model.SetupToken{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedAdmin creates the bootstrap admin account if no admin exists yet.
// Credentials come from the environment; without them the seed is skipped.
func SeedAdmin(email, password, name string) error {
	if email == "" || password == "" {
		logger.Info("Admin seed skipped: no bootstrap credentials configured")
		return nil
	}

	var count int64
	if err := DB.Model(&model.AdminUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Admin users already present, skipping seed", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.AdminUser{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         model.RoleAdmin,
	}
	if err := DB.Create(admin).Error; err != nil {
		logger.Error("Failed to seed admin user", err)
		return err
	}

	logger.Info("Bootstrap admin user created", map[string]interface{}{
		"email": email,
	})
	return nil
}
