package controller

import (
	"errors"
	"net/http"

	"github.com/aminimarket/marketplace-backend/internal/app/service"
	apperrors "github.com/aminimarket/marketplace-backend/internal/errors"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles back-office login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid login payload")
		return
	}

	admin, tokens, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Login failed: invalid credentials", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "invalid email or password")
			return
		}
		log.Error("Login failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "admin login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
			"role":  admin.Role,
		},
		"tokens": tokens,
	})
}

// GetMe returns the authenticated admin
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	adminID, ok := middleware.GetAdminID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	admin, err := ctrl.authService.GetAdminByID(adminID)
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get admin")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    admin.ID,
		"email": admin.Email,
		"name":  admin.Name,
		"role":  admin.Role,
	})
}
