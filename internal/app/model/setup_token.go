package model

import (
	"time"
)

// SetupToken is the hashed, single-use proof that a merchant may complete
// account setup. Only the SHA-256 digest of the token is stored; the
// plaintext exists solely in the setup URL handed to the delivery queue.
// At most one live token exists per merchant (re-issue replaces the row).
type SetupToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MerchantID uint      `gorm:"uniqueIndex;not null" json:"merchant_id"`
	TokenHash  string    `gorm:"type:char(64);not null" json:"-"` // hex SHA-256, never the plaintext
	IssuedAt   time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (SetupToken) TableName() string {
	return "setup_tokens"
}

// Expired reports whether the token is past its validity window at t
func (s *SetupToken) Expired(t time.Time) bool {
	return t.After(s.ExpiresAt)
}
