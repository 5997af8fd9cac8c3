package repository

import (
	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SetupTokenRepository interface {
	Save(token *model.SetupToken) error
	FindByMerchant(merchantID uint) (*model.SetupToken, error)
	DeleteByMerchant(merchantID uint) error
}

type setupTokenRepository struct {
	db *gorm.DB
}

func NewSetupTokenRepository(db *gorm.DB) SetupTokenRepository {
	return &setupTokenRepository{db: db}
}

// Save inserts the token row, replacing any existing token for the merchant.
// The unique index on merchant_id keeps the one-live-token invariant.
func (r *setupTokenRepository) Save(token *model.SetupToken) error {
	logger.Debug("Saving setup token in database", map[string]interface{}{
		"merchant_id": token.MerchantID,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "issued_at", "expires_at"}),
	}).Create(token).Error
	if err != nil {
		logger.Error("Failed to save setup token in database", err, map[string]interface{}{
			"merchant_id": token.MerchantID,
		})
		return err
	}
	return nil
}

func (r *setupTokenRepository) FindByMerchant(merchantID uint) (*model.SetupToken, error) {
	logger.Debug("Finding setup token by merchant in database", map[string]interface{}{
		"merchant_id": merchantID,
	})

	var token model.SetupToken
	if err := r.db.Where("merchant_id = ?", merchantID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *setupTokenRepository) DeleteByMerchant(merchantID uint) error {
	logger.Debug("Deleting setup token from database", map[string]interface{}{
		"merchant_id": merchantID,
	})

	if err := r.db.Where("merchant_id = ?", merchantID).Delete(&model.SetupToken{}).Error; err != nil {
		logger.Error("Failed to delete setup token from database", err, map[string]interface{}{
			"merchant_id": merchantID,
		})
		return err
	}
	return nil
}
