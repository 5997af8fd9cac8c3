package model

import (
	"time"

	"gorm.io/gorm"
)

type AdminRole string

const (
	RoleAdmin    AdminRole = "admin"    // full access, reviews documents
	RoleOperator AdminRole = "operator" // may create merchants and dispatch queues
)

// AdminUser is a back-office account. Merchants themselves authenticate
// through the storefront, not through this table.
type AdminUser struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Role         AdminRole      `gorm:"type:varchar(20);default:'operator'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
