package controller

import (
	"errors"
	"net/http"

	"github.com/aminimarket/marketplace-backend/internal/app/service"
	apperrors "github.com/aminimarket/marketplace-backend/internal/errors"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type QueueController struct {
	onboardingService service.OnboardingService
}

func NewQueueController(onboardingService service.OnboardingService) *QueueController {
	return &QueueController{onboardingService: onboardingService}
}

// Status returns the pending credential queue, if any
// GET /api/v1/credential-queue
func (ctrl *QueueController) Status(c *gin.Context) {
	q, err := ctrl.onboardingService.QueueStatus()
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "queue status")
		return
	}
	if q == nil {
		c.JSON(http.StatusOK, gin.H{"pending": false})
		return
	}

	// Entry detail carries plaintext credentials; expose counts and schedule only
	c.JSON(http.StatusOK, gin.H{
		"pending":        true,
		"entries":        len(q.Entries),
		"scheduled_for":  q.ScheduledFor,
		"scheduled_time": q.ScheduledTime,
		"created":        q.CreatedAt,
	})
}

// Dispatch drains the pending queue immediately
// POST /api/v1/credential-queue/dispatch
func (ctrl *QueueController) Dispatch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	report, err := ctrl.onboardingService.DispatchQueue(c.Request.Context(), true)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPendingQueue):
			apperrors.NotFound(c, apperrors.QueueNotFound, "no pending credential queue")
		case errors.Is(err, service.ErrDispatchCancelled):
			c.JSON(http.StatusAccepted, gin.H{
				"message": "dispatch cancelled before completion, queue remains pending",
				"report":  report,
			})
		default:
			log.Error("Manual dispatch failed", err, nil)
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "dispatch queue")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Discard drops the pending queue without sending anything
// DELETE /api/v1/credential-queue
func (ctrl *QueueController) Discard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if err := ctrl.onboardingService.DiscardQueue(); err != nil {
		log.Error("Queue discard failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "discard queue")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pending credential queue discarded"})
}
