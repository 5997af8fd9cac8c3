package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound = errors.New("no setup token on file for merchant")
	ErrTokenExpired  = errors.New("setup token has expired")
	ErrTokenMismatch = errors.New("setup token does not match")
)

const (
	// SetupTokenValidity is how long an issued setup token stays usable
	SetupTokenValidity = 14 * 24 * time.Hour
	// setupTokenBytes gives 256 bits of entropy (64 hex characters)
	setupTokenBytes = 32
)

// TokenService issues and verifies merchant account-setup tokens. Only the
// SHA-256 digest is ever persisted; the plaintext is returned once to the
// caller, who is responsible for delivering it.
type TokenService interface {
	Issue(merchantID uint) (string, *model.SetupToken, error)
	Verify(merchantID uint, suppliedPlaintext string) error
	Consume(merchantID uint) error
}

type tokenService struct {
	tokenRepo repository.SetupTokenRepository
}

func NewTokenService(tokenRepo repository.SetupTokenRepository) TokenService {
	return &tokenService{tokenRepo: tokenRepo}
}

// Issue generates a fresh setup token for the merchant, replacing any
// previous one. The returned plaintext must never be stored.
func (s *tokenService) Issue(merchantID uint) (string, *model.SetupToken, error) {
	plaintext, err := generateSetupToken()
	if err != nil {
		logger.Error("Failed to generate setup token", err, map[string]interface{}{
			"merchant_id": merchantID,
		})
		return "", nil, err
	}

	now := time.Now()
	token := &model.SetupToken{
		MerchantID: merchantID,
		TokenHash:  hashSetupToken(plaintext),
		IssuedAt:   now,
		ExpiresAt:  now.Add(SetupTokenValidity),
	}

	if err := s.tokenRepo.Save(token); err != nil {
		return "", nil, err
	}

	logger.Info("Setup token issued", map[string]interface{}{
		"merchant_id": merchantID,
		"expires_at":  token.ExpiresAt,
	})
	return plaintext, token, nil
}

// Verify recomputes the digest of the supplied token and compares it against
// the stored hash in constant time.
func (s *tokenService) Verify(merchantID uint, suppliedPlaintext string) error {
	token, err := s.tokenRepo.FindByMerchant(merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Setup token verification failed: no token on file", map[string]interface{}{
				"merchant_id": merchantID,
			})
			return ErrTokenNotFound
		}
		return err
	}

	if token.Expired(time.Now()) {
		logger.Warn("Setup token verification failed: expired", map[string]interface{}{
			"merchant_id": merchantID,
			"expires_at":  token.ExpiresAt,
		})
		return ErrTokenExpired
	}

	supplied := hashSetupToken(suppliedPlaintext)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(token.TokenHash)) != 1 {
		logger.Warn("Setup token verification failed: mismatch", map[string]interface{}{
			"merchant_id": merchantID,
		})
		return ErrTokenMismatch
	}

	logger.Debug("Setup token verified", map[string]interface{}{
		"merchant_id": merchantID,
	})
	return nil
}

// Consume clears the stored token after a successful verification, making it
// single-use. Re-issuing afterwards is allowed.
func (s *tokenService) Consume(merchantID uint) error {
	if err := s.tokenRepo.DeleteByMerchant(merchantID); err != nil {
		return err
	}

	logger.Info("Setup token consumed", map[string]interface{}{
		"merchant_id": merchantID,
	})
	return nil
}

func generateSetupToken() (string, error) {
	bytes := make([]byte, setupTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func hashSetupToken(plaintext string) string {
	digest := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(digest[:])
}
