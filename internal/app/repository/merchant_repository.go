package repository

import (
	"strings"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MerchantRepository interface {
	Create(merchant *model.Merchant) error
	FindByID(id uint) (*model.Merchant, error)
	FindByEmail(email string) (*model.Merchant, error)
	FindByExternalID(externalID string) (*model.Merchant, error)
	Update(merchant *model.Merchant) error
	UpdateStatus(id uint, status model.OnboardingStatus) error
	Upsert(merchant *model.Merchant) error
	List(status model.OnboardingStatus, limit, offset int) ([]model.Merchant, int64, error)

	SaveDocument(doc *model.MerchantDocument) error
	DocumentsByMerchant(merchantID uint) ([]model.MerchantDocument, error)
}

type merchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) Create(merchant *model.Merchant) error {
	logger.Debug("Creating merchant in database", map[string]interface{}{
		"email":         merchant.Email,
		"business_name": merchant.BusinessName,
	})

	if err := r.db.Create(merchant).Error; err != nil {
		logger.Error("Failed to create merchant in database", err, map[string]interface{}{
			"email": merchant.Email,
		})
		return err
	}

	logger.Debug("Merchant created in database", map[string]interface{}{
		"merchant_id": merchant.ID,
		"email":       merchant.Email,
	})
	return nil
}

func (r *merchantRepository) FindByID(id uint) (*model.Merchant, error) {
	logger.Debug("Finding merchant by ID in database", map[string]interface{}{
		"merchant_id": id,
	})

	var merchant model.Merchant
	if err := r.db.First(&merchant, id).Error; err != nil {
		logger.Error("Failed to find merchant by ID in database", err, map[string]interface{}{
			"merchant_id": id,
		})
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) FindByEmail(email string) (*model.Merchant, error) {
	// Emails are stored lowercased; match case-insensitively
	email = strings.ToLower(email)

	logger.Debug("Finding merchant by email in database", map[string]interface{}{
		"email": email,
	})

	var merchant model.Merchant
	if err := r.db.Where("email = ?", email).First(&merchant).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find merchant by email in database", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) FindByExternalID(externalID string) (*model.Merchant, error) {
	logger.Debug("Finding merchant by external ID in database", map[string]interface{}{
		"external_id": externalID,
	})

	var merchant model.Merchant
	if err := r.db.Where("external_id = ?", externalID).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) Update(merchant *model.Merchant) error {
	logger.Debug("Updating merchant in database", map[string]interface{}{
		"merchant_id": merchant.ID,
	})

	if err := r.db.Save(merchant).Error; err != nil {
		logger.Error("Failed to update merchant in database", err, map[string]interface{}{
			"merchant_id": merchant.ID,
		})
		return err
	}
	return nil
}

func (r *merchantRepository) UpdateStatus(id uint, status model.OnboardingStatus) error {
	logger.Debug("Updating merchant onboarding status in database", map[string]interface{}{
		"merchant_id": id,
		"status":      status,
	})

	updates := map[string]interface{}{"onboarding_status": status}
	switch status {
	case model.OnboardingCredentialsSent:
		updates["credentials_sent_at"] = time.Now()
	case model.OnboardingVerified:
		updates["verified_at"] = time.Now()
	}

	result := r.db.Model(&model.Merchant{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update merchant onboarding status", result.Error, map[string]interface{}{
			"merchant_id": id,
			"status":      status,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Upsert inserts the merchant or, when a row with the same external ID
// exists, replaces its fields wholesale. Overwrite semantics match the import
// feed contract: re-running the same feed is idempotent, but a feed that
// omits a field the live record has will blank that field.
func (r *merchantRepository) Upsert(merchant *model.Merchant) error {
	logger.Debug("Upserting merchant in database", map[string]interface{}{
		"external_id": merchant.ExternalID,
		"email":       merchant.Email,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "business_name", "owner_name", "phone",
			"created_programmatically", "created_by", "updated_at",
		}),
	}).Create(merchant).Error
	if err != nil {
		logger.Error("Failed to upsert merchant in database", err, map[string]interface{}{
			"external_id": merchant.ExternalID,
		})
		return err
	}
	return nil
}

func (r *merchantRepository) List(status model.OnboardingStatus, limit, offset int) ([]model.Merchant, int64, error) {
	logger.Debug("Listing merchants from database", map[string]interface{}{
		"status": status,
		"limit":  limit,
		"offset": offset,
	})

	query := r.db.Model(&model.Merchant{})
	if status != "" {
		query = query.Where("onboarding_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var merchants []model.Merchant
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&merchants).Error; err != nil {
		logger.Error("Failed to list merchants from database", err, nil)
		return nil, 0, err
	}
	return merchants, total, nil
}

// SaveDocument stores an uploaded document. Required slots are replaced in
// place (one row per slot per merchant); additional documents accumulate.
func (r *merchantRepository) SaveDocument(doc *model.MerchantDocument) error {
	logger.Debug("Saving merchant document in database", map[string]interface{}{
		"merchant_id": doc.MerchantID,
		"slot":        doc.Slot,
	})

	if doc.Slot == model.SlotAdditional {
		return r.db.Create(doc).Error
	}

	var existing model.MerchantDocument
	err := r.db.Where("merchant_id = ? AND slot = ?", doc.MerchantID, doc.Slot).First(&existing).Error
	if err == nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		return r.db.Save(doc).Error
	}
	if err != gorm.ErrRecordNotFound {
		logger.Error("Failed to look up existing document slot", err, map[string]interface{}{
			"merchant_id": doc.MerchantID,
			"slot":        doc.Slot,
		})
		return err
	}
	return r.db.Create(doc).Error
}

func (r *merchantRepository) DocumentsByMerchant(merchantID uint) ([]model.MerchantDocument, error) {
	logger.Debug("Fetching merchant documents from database", map[string]interface{}{
		"merchant_id": merchantID,
	})

	var docs []model.MerchantDocument
	if err := r.db.Where("merchant_id = ?", merchantID).Order("uploaded_at ASC").Find(&docs).Error; err != nil {
		logger.Error("Failed to fetch merchant documents from database", err, map[string]interface{}{
			"merchant_id": merchantID,
		})
		return nil, err
	}
	return docs, nil
}
