package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/service"
	apperrors "github.com/aminimarket/marketplace-backend/internal/errors"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type DocumentController struct {
	documentService service.DocumentService
}

func NewDocumentController(documentService service.DocumentService) *DocumentController {
	return &DocumentController{documentService: documentService}
}

type SubmitDocumentRequest struct {
	Slot         string `json:"slot" binding:"required"`
	Path         string `json:"path" binding:"required"` // storage key returned by the upload presign
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

type ReviewDecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Note     string `json:"note"`
}

// SubmitDocument records an uploaded verification document
// POST /api/v1/merchants/:id/documents
func (ctrl *DocumentController) SubmitDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	merchantID, err := parseID(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid merchant id")
		return
	}

	var req SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid document payload")
		return
	}

	set, err := ctrl.documentService.Submit(merchantID, model.DocumentSlot(req.Slot), model.DocumentRef{
		Path:         req.Path,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMerchantNotFound):
			apperrors.NotFound(c, apperrors.MerchantNotFound, "merchant not found")
		case errors.Is(err, service.ErrInvalidSlot):
			apperrors.BadRequest(c, apperrors.DocumentInvalidSlot, "unknown document slot")
		case errors.Is(err, service.ErrDocumentsNotOpen):
			apperrors.Conflict(c, apperrors.MerchantInvalidTransition, "merchant is not accepting documents in its current stage")
		default:
			log.Error("Document submission failed", err, map[string]interface{}{
				"merchant_id": merchantID,
				"slot":        req.Slot,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "submit document")
		}
		return
	}

	completion := ctrl.documentService.Completion(set)
	c.JSON(http.StatusOK, gin.H{
		"documents":  set,
		"completion": completion,
	})
}

// GetDocuments returns the merchant's document set and completion
// GET /api/v1/merchants/:id/documents
func (ctrl *DocumentController) GetDocuments(c *gin.Context) {
	merchantID, err := parseID(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid merchant id")
		return
	}

	set, err := ctrl.documentService.GetDocumentSet(merchantID)
	if err != nil {
		if errors.Is(err, service.ErrMerchantNotFound) {
			apperrors.NotFound(c, apperrors.MerchantNotFound, "merchant not found")
			return
		}
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get documents")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents":  set,
		"completion": ctrl.documentService.Completion(set),
	})
}

// Decide records an admin review decision
// POST /api/v1/merchants/:id/review
func (ctrl *DocumentController) Decide(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	merchantID, err := parseID(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid merchant id")
		return
	}

	var req ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid review payload")
		return
	}

	reviewerID, _ := middleware.GetAdminID(c)
	set, err := ctrl.documentService.Decide(merchantID, service.ReviewDecision(req.Decision), req.Note, reviewerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMerchantNotFound):
			apperrors.NotFound(c, apperrors.MerchantNotFound, "merchant not found")
		case errors.Is(err, service.ErrNotUnderReview):
			apperrors.Conflict(c, apperrors.DocumentNotUnderReview, "document set is not under review")
		case errors.Is(err, service.ErrDocumentsNotReady):
			apperrors.Conflict(c, apperrors.DocumentSetNotReady, "cannot approve: required documents are missing")
		default:
			log.Error("Review decision failed", err, map[string]interface{}{
				"merchant_id": merchantID,
				"decision":    req.Decision,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "review decision")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": set})
}

// Reopen resets a rejected merchant back to documents_pending
// POST /api/v1/merchants/:id/reopen
func (ctrl *DocumentController) Reopen(c *gin.Context) {
	merchantID, err := parseID(c)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid merchant id")
		return
	}

	if err := ctrl.documentService.Reopen(merchantID); err != nil {
		switch {
		case errors.Is(err, service.ErrMerchantNotFound):
			apperrors.NotFound(c, apperrors.MerchantNotFound, "merchant not found")
		case errors.Is(err, service.ErrInvalidTransition):
			apperrors.Conflict(c, apperrors.MerchantInvalidTransition, "merchant cannot be reopened from its current stage")
		default:
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "reopen merchant")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Merchant reopened for document resubmission"})
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(id), err
}
