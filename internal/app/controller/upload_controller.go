package controller

import (
	"net/http"

	apperrors "github.com/aminimarket/marketplace-backend/internal/errors"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/aminimarket/marketplace-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type UploadController struct {
	s3Storage *storage.S3Storage
}

func NewUploadController(s3Storage *storage.S3Storage) *UploadController {
	return &UploadController{s3Storage: s3Storage}
}

type PresignRequest struct {
	MerchantID  uint   `json:"merchant_id" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

// PresignDocument issues a pre-signed upload URL for a verification document
// POST /api/v1/upload/documents
func (ctrl *UploadController) PresignDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid upload payload")
		return
	}

	if err := ctrl.s3Storage.ValidateFileSize(req.SizeBytes, storage.MaxDocumentSize); err != nil {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, err.Error())
		return
	}
	if err := ctrl.s3Storage.ValidateContentType(req.ContentType, storage.AllowedDocumentTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, err.Error())
		return
	}

	resp, err := ctrl.s3Storage.PresignDocumentUpload(req.MerchantID, req.Filename, req.ContentType)
	if err != nil {
		log.Error("Failed to presign document upload", err, map[string]interface{}{
			"merchant_id": req.MerchantID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "failed to prepare upload")
		return
	}

	c.JSON(http.StatusOK, resp)
}
