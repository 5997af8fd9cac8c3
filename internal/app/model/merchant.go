package model

import (
	"time"

	"gorm.io/gorm"
)

// OnboardingStatus is the merchant-level lifecycle stage, distinct from the
// per-document review status.
type OnboardingStatus string

const (
	OnboardingCredentialsPending OnboardingStatus = "credentials_pending" // account created, credentials not yet delivered
	OnboardingCredentialsSent    OnboardingStatus = "credentials_sent"    // welcome credentials queued or delivered
	OnboardingDocumentsPending   OnboardingStatus = "documents_pending"   // account set up, waiting for documents
	OnboardingDocumentsSubmitted OnboardingStatus = "documents_submitted" // at least one required document uploaded
	OnboardingUnderReview        OnboardingStatus = "under_review"        // all required documents uploaded
	OnboardingVerified           OnboardingStatus = "verified"            // admin approved
	OnboardingRejected           OnboardingStatus = "rejected"            // admin rejected, may be reopened
)

// onboardingTransitions lists the allowed next statuses for each stage.
// No transition skips a stage; rejected may be explicitly reopened.
var onboardingTransitions = map[OnboardingStatus][]OnboardingStatus{
	OnboardingCredentialsPending: {OnboardingCredentialsSent},
	OnboardingCredentialsSent:    {OnboardingDocumentsPending},
	OnboardingDocumentsPending:   {OnboardingDocumentsSubmitted},
	OnboardingDocumentsSubmitted: {OnboardingUnderReview},
	OnboardingUnderReview:        {OnboardingVerified, OnboardingRejected},
	OnboardingRejected:           {OnboardingDocumentsPending},
	OnboardingVerified:           {},
}

// CanTransition reports whether a merchant may move from its current
// onboarding status to next.
func (s OnboardingStatus) CanTransition(next OnboardingStatus) bool {
	for _, allowed := range onboardingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Merchant struct {
	ID uint `gorm:"primarykey" json:"id"`
	// Stable id from the import feed; nullable so manually created merchants
	// do not collide on the unique index.
	ExternalID *string `gorm:"type:varchar(64);uniqueIndex" json:"external_id,omitempty"`
	Email      string  `gorm:"uniqueIndex;not null" json:"email"` // stored lowercased
	// Login password hash; the plaintext temporary password only ever lives
	// in the credential delivery queue.
	PasswordHash string `gorm:"not null" json:"-"`

	BusinessName string `gorm:"not null" json:"business_name"`
	OwnerName    string `json:"owner_name"`
	Phone        string `json:"phone"`

	OnboardingStatus        OnboardingStatus `gorm:"type:varchar(30);default:'credentials_pending';index" json:"onboarding_status"`
	CreatedProgrammatically bool             `gorm:"default:false" json:"created_programmatically"`
	CreatedBy               string           `gorm:"type:varchar(100)" json:"created_by"` // bulk import, admin script, API

	// Document review state, advanced only through the document service
	ReviewStatus         ReviewStatus `gorm:"type:varchar(20);default:'pending';index" json:"review_status"`
	ReviewerNote         string       `gorm:"type:text" json:"reviewer_note,omitempty"`
	DocumentsSubmittedAt *time.Time   `json:"documents_submitted_at,omitempty"`
	ReviewedAt           *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy           *uint        `json:"reviewed_by,omitempty"` // admin user ID

	CredentialsSentAt *time.Time `json:"credentials_sent_at,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Documents []MerchantDocument `gorm:"foreignKey:MerchantID" json:"documents,omitempty"`
}

func (Merchant) TableName() string {
	return "merchants"
}
