package model

import (
	"time"

	"gorm.io/gorm"
)

// ReviewStatus is the completeness/approval state of a merchant's document set
type ReviewStatus string

const (
	ReviewStatusPending     ReviewStatus = "pending"      // nothing uploaded yet
	ReviewStatusIncomplete  ReviewStatus = "incomplete"   // some required slots still empty
	ReviewStatusUnderReview ReviewStatus = "under_review" // all required slots filled
	ReviewStatusApproved    ReviewStatus = "approved"
	ReviewStatusRejected    ReviewStatus = "rejected"
)

// DocumentSlot identifies which verification requirement a document fulfils
type DocumentSlot string

const (
	SlotBusinessRegistration DocumentSlot = "business_registration"
	SlotIDDocument           DocumentSlot = "id_document"
	SlotUtilityBill          DocumentSlot = "utility_bill"
	SlotAdditional           DocumentSlot = "additional"
)

// RequiredSlots are the three slots that must be filled before a document set
// can be approved.
var RequiredSlots = []DocumentSlot{SlotBusinessRegistration, SlotIDDocument, SlotUtilityBill}

// ValidSlot reports whether s names a known document slot
func ValidSlot(s DocumentSlot) bool {
	switch s {
	case SlotBusinessRegistration, SlotIDDocument, SlotUtilityBill, SlotAdditional:
		return true
	}
	return false
}

// MerchantDocument is one uploaded verification document. Required slots hold
// at most one row per merchant (replaced on re-upload); the additional slot
// may repeat.
type MerchantDocument struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	MerchantID uint         `gorm:"not null;index:idx_merchant_documents_merchant_slot" json:"merchant_id"`
	Slot       DocumentSlot `gorm:"type:varchar(30);not null;index:idx_merchant_documents_merchant_slot" json:"slot"`

	Path         string    `gorm:"type:text;not null" json:"path"` // storage key (S3)
	OriginalName string    `gorm:"type:varchar(255)" json:"original_name"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func (MerchantDocument) TableName() string {
	return "merchant_documents"
}

// DocumentRef is the slot-independent view of one uploaded document
type DocumentRef struct {
	Path         string    `json:"path"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// DocumentSet is the assembled view of a merchant's uploads plus review state.
// It is derived from merchant_documents rows and the merchant's review fields;
// all completeness/review derivation goes through the document service.
type DocumentSet struct {
	MerchantID           uint          `json:"merchant_id"`
	BusinessRegistration *DocumentRef  `json:"business_registration,omitempty"`
	IDDocument           *DocumentRef  `json:"id_document,omitempty"`
	UtilityBill          *DocumentRef  `json:"utility_bill,omitempty"`
	AdditionalDocs       []DocumentRef `json:"additional_docs,omitempty"`

	ReviewStatus         ReviewStatus `json:"review_status"`
	ReviewerNote         string       `json:"reviewer_note,omitempty"`
	DocumentsSubmittedAt *time.Time   `json:"documents_submitted_at,omitempty"`
}

// Ref returns the document in the given required slot, or nil
func (d *DocumentSet) Ref(slot DocumentSlot) *DocumentRef {
	switch slot {
	case SlotBusinessRegistration:
		return d.BusinessRegistration
	case SlotIDDocument:
		return d.IDDocument
	case SlotUtilityBill:
		return d.UtilityBill
	}
	return nil
}

// SetRef fills the given required slot
func (d *DocumentSet) SetRef(slot DocumentSlot, ref *DocumentRef) {
	switch slot {
	case SlotBusinessRegistration:
		d.BusinessRegistration = ref
	case SlotIDDocument:
		d.IDDocument = ref
	case SlotUtilityBill:
		d.UtilityBill = ref
	}
}
