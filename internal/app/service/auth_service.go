package service

import (
	"errors"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService authenticates back-office users (admins and operators)
type AuthService interface {
	Login(email, password string) (*model.AdminUser, *util.TokenPair, error)
	GetAdminByID(id uint) (*model.AdminUser, error)
}

type authService struct {
	adminRepo     repository.AdminRepository
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(adminRepo repository.AdminRepository, jwtSecret string, accessExpiry, refreshExpiry time.Duration) AuthService {
	return &authService{
		adminRepo:     adminRepo,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Login(email, password string) (*model.AdminUser, *util.TokenPair, error) {
	logger.Info("Processing admin login", map[string]interface{}{
		"email": email,
	})

	admin, err := s.adminRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: admin not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(admin.PasswordHash, password) {
		logger.Warn("Login failed: wrong password", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := util.GenerateTokenPair(admin.ID, admin.Email, string(admin.Role), s.jwtSecret, s.accessExpiry, s.refreshExpiry)
	if err != nil {
		logger.Error("Failed to generate token pair", err, map[string]interface{}{
			"admin_id": admin.ID,
		})
		return nil, nil, err
	}

	logger.Info("Admin logged in", map[string]interface{}{
		"admin_id": admin.ID,
		"role":     admin.Role,
	})
	return admin, tokens, nil
}

func (s *authService) GetAdminByID(id uint) (*model.AdminUser, error) {
	return s.adminRepo.FindByID(id)
}
