package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/service"
	apperrors "github.com/aminimarket/marketplace-backend/internal/errors"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type MerchantController struct {
	onboardingService service.OnboardingService
	merchantLister    MerchantLister
}

// MerchantLister is the read side used by the admin list endpoint
type MerchantLister interface {
	List(status model.OnboardingStatus, limit, offset int) ([]model.Merchant, int64, error)
	FindByID(id uint) (*model.Merchant, error)
}

func NewMerchantController(onboardingService service.OnboardingService, lister MerchantLister) *MerchantController {
	return &MerchantController{
		onboardingService: onboardingService,
		merchantLister:    lister,
	}
}

type CreateMerchantRequest struct {
	BusinessName string `json:"business_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	OwnerName    string `json:"owner_name"`
	AutoVerify   bool   `json:"auto_verify"`
}

type BatchCreateRequest struct {
	Merchants    []CreateMerchantRequest `json:"merchants" binding:"required,min=1,dive"`
	ScheduledFor time.Time               `json:"scheduled_for" binding:"required"`
	AutoVerify   bool                    `json:"auto_verify"`
}

type AccountSetupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=12"`
}

// CreateMerchant creates a single merchant and returns its credential bundle
// POST /api/v1/merchants
func (ctrl *MerchantController) CreateMerchant(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid merchant payload")
		return
	}

	adminID, _ := middleware.GetAdminID(c)
	merchant, credentials, err := ctrl.onboardingService.CreateMerchant(
		service.CreateMerchantInput{
			BusinessName: req.BusinessName,
			Email:        req.Email,
			Phone:        req.Phone,
			OwnerName:    req.OwnerName,
		},
		service.CreateOptions{
			CreatedBy:  "admin:" + strconv.FormatUint(uint64(adminID), 10),
			AutoVerify: req.AutoVerify,
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			apperrors.Conflict(c, apperrors.MerchantEmailExists, "a merchant with this email already exists")
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrMissingBusiness):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		default:
			log.Error("Merchant creation failed", err, map[string]interface{}{
				"email": req.Email,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create merchant")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"merchant":    merchant,
		"credentials": credentials,
	})
}

// CreateMerchantsBatch creates merchants in bulk and enqueues one credential
// delivery batch
// POST /api/v1/merchants/batch
func (ctrl *MerchantController) CreateMerchantsBatch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req BatchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid batch payload")
		return
	}

	inputs := make([]service.CreateMerchantInput, 0, len(req.Merchants))
	for _, m := range req.Merchants {
		inputs = append(inputs, service.CreateMerchantInput{
			BusinessName: m.BusinessName,
			Email:        m.Email,
			Phone:        m.Phone,
			OwnerName:    m.OwnerName,
		})
	}

	adminID, _ := middleware.GetAdminID(c)
	report, err := ctrl.onboardingService.CreateMerchantsBatch(inputs, req.ScheduledFor, service.CreateOptions{
		CreatedBy:    "admin:" + strconv.FormatUint(uint64(adminID), 10),
		Programmatic: true,
		AutoVerify:   req.AutoVerify,
	})
	if err != nil {
		log.Error("Batch creation failed", err, map[string]interface{}{
			"count": len(inputs),
		})
		if report != nil {
			// merchants were created but the queue could not be written
			c.JSON(http.StatusConflict, gin.H{
				"error":   apperrors.QueueAlreadyPending,
				"message": err.Error(),
				"report":  report,
			})
			return
		}
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create merchant batch")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// SetupAccount completes merchant account setup with a one-time token
// POST /api/v1/merchants/account-setup
func (ctrl *MerchantController) SetupAccount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AccountSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid setup payload")
		return
	}

	merchant, err := ctrl.onboardingService.SetupAccount(req.Email, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMerchantNotFound):
			apperrors.NotFound(c, apperrors.MerchantNotFound, "merchant not found")
		case errors.Is(err, service.ErrTokenNotFound):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.TokenNotFound, "no setup token on file, request a new invitation")
		case errors.Is(err, service.ErrTokenExpired):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.TokenExpired, "setup link has expired, request a new invitation")
		case errors.Is(err, service.ErrTokenMismatch):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.TokenMismatch, "setup link is not valid")
		default:
			log.Error("Account setup failed", err, map[string]interface{}{
				"email": req.Email,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "account setup")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Account setup completed",
		"merchant": merchant,
	})
}

// GetMerchant returns one merchant
// GET /api/v1/merchants/:id
func (ctrl *MerchantController) GetMerchant(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid merchant id")
		return
	}

	merchant, err := ctrl.merchantLister.FindByID(uint(id))
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusNotFound, err, "get merchant")
		return
	}

	c.JSON(http.StatusOK, merchant)
}

// ListMerchants returns merchants, optionally filtered by onboarding status
// GET /api/v1/merchants?status=&limit=&offset=
func (ctrl *MerchantController) ListMerchants(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := model.OnboardingStatus(c.Query("status"))

	merchants, total, err := ctrl.merchantLister.List(status, limit, offset)
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list merchants")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"merchants": merchants,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}
