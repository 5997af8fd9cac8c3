package service

import (
	"errors"
	"math"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrMerchantNotFound  = errors.New("merchant not found")
	ErrInvalidSlot       = errors.New("unknown document slot")
	ErrDocumentsNotReady = errors.New("cannot approve: required documents are missing")
	ErrInvalidTransition = errors.New("invalid onboarding status transition")
	ErrNotUnderReview    = errors.New("document set is not under review")
	ErrInvalidDecision   = errors.New("decision must be approve or reject")
	ErrDocumentsNotOpen  = errors.New("merchant is not accepting document uploads in its current stage")
)

// ReviewDecision is an admin verdict on a complete document set
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// Completion summarizes how far a merchant's required uploads have come
type Completion struct {
	Count   int  `json:"count"`   // populated required slots, 0..3
	Percent int  `json:"percent"` // round(count/3 * 100)
	Ready   bool `json:"ready"`   // all three required slots populated
}

// DocumentService is the single source of truth for document completeness,
// review state and the merchant onboarding state machine. No other component
// re-derives completeness on its own.
type DocumentService interface {
	GetDocumentSet(merchantID uint) (*model.DocumentSet, error)
	Completion(set *model.DocumentSet) Completion
	Submit(merchantID uint, slot model.DocumentSlot, ref model.DocumentRef) (*model.DocumentSet, error)
	Decide(merchantID uint, decision ReviewDecision, reviewerNote string, reviewerID uint) (*model.DocumentSet, error)
	Reopen(merchantID uint) error
	Transition(merchantID uint, next model.OnboardingStatus) error
}

type documentService struct {
	merchantRepo repository.MerchantRepository
}

func NewDocumentService(merchantRepo repository.MerchantRepository) DocumentService {
	return &documentService{merchantRepo: merchantRepo}
}

// GetDocumentSet assembles the merchant's uploads and review state into one view
func (s *documentService) GetDocumentSet(merchantID uint) (*model.DocumentSet, error) {
	merchant, err := s.findMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	docs, err := s.merchantRepo.DocumentsByMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	set := &model.DocumentSet{
		MerchantID:           merchant.ID,
		ReviewStatus:         merchant.ReviewStatus,
		ReviewerNote:         merchant.ReviewerNote,
		DocumentsSubmittedAt: merchant.DocumentsSubmittedAt,
	}
	for _, doc := range docs {
		ref := model.DocumentRef{
			Path:         doc.Path,
			OriginalName: doc.OriginalName,
			MimeType:     doc.MimeType,
			SizeBytes:    doc.SizeBytes,
			UploadedAt:   doc.UploadedAt,
		}
		if doc.Slot == model.SlotAdditional {
			set.AdditionalDocs = append(set.AdditionalDocs, ref)
			continue
		}
		refCopy := ref
		set.SetRef(doc.Slot, &refCopy)
	}
	return set, nil
}

// Completion derives required-slot completeness. Ready is true iff all three
// required slots are populated.
func (s *documentService) Completion(set *model.DocumentSet) Completion {
	count := 0
	for _, slot := range model.RequiredSlots {
		if set.Ref(slot) != nil {
			count++
		}
	}
	return Completion{
		Count:   count,
		Percent: int(math.Round(float64(count) / float64(len(model.RequiredSlots)) * 100)),
		Ready:   count == len(model.RequiredSlots),
	}
}

// Submit records an uploaded document in the given slot, stamps the first
// required-slot submission and advances both the review status and the
// merchant onboarding stage (documents_pending -> documents_submitted ->
// under_review when all required slots are filled). Additional documents are
// stored but never move the stage on their own.
func (s *documentService) Submit(merchantID uint, slot model.DocumentSlot, ref model.DocumentRef) (*model.DocumentSet, error) {
	if !model.ValidSlot(slot) {
		return nil, ErrInvalidSlot
	}

	merchant, err := s.findMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	switch merchant.OnboardingStatus {
	case model.OnboardingDocumentsPending, model.OnboardingDocumentsSubmitted, model.OnboardingUnderReview:
	default:
		logger.Warn("Document submitted outside the documents stage", map[string]interface{}{
			"merchant_id": merchantID,
			"status":      merchant.OnboardingStatus,
		})
		return nil, ErrDocumentsNotOpen
	}

	if ref.UploadedAt.IsZero() {
		ref.UploadedAt = time.Now()
	}
	doc := &model.MerchantDocument{
		MerchantID:   merchantID,
		Slot:         slot,
		Path:         ref.Path,
		OriginalName: ref.OriginalName,
		MimeType:     ref.MimeType,
		SizeBytes:    ref.SizeBytes,
		UploadedAt:   ref.UploadedAt,
	}
	if err := s.merchantRepo.SaveDocument(doc); err != nil {
		return nil, err
	}

	set, err := s.GetDocumentSet(merchantID)
	if err != nil {
		return nil, err
	}
	completion := s.Completion(set)

	if completion.Count > 0 && merchant.DocumentsSubmittedAt == nil {
		now := time.Now()
		merchant.DocumentsSubmittedAt = &now
	}
	if completion.Ready {
		merchant.ReviewStatus = model.ReviewStatusUnderReview
	} else {
		merchant.ReviewStatus = model.ReviewStatusIncomplete
	}

	// Advance the onboarding stage without skipping states. The first populated
	// required slot opens documents_submitted; additional uploads alone do not.
	if completion.Count > 0 && merchant.OnboardingStatus == model.OnboardingDocumentsPending {
		merchant.OnboardingStatus = model.OnboardingDocumentsSubmitted
	}
	if completion.Ready && merchant.OnboardingStatus == model.OnboardingDocumentsSubmitted {
		merchant.OnboardingStatus = model.OnboardingUnderReview
	}

	if err := s.merchantRepo.Update(merchant); err != nil {
		return nil, err
	}

	logger.Info("Merchant document submitted", map[string]interface{}{
		"merchant_id":   merchantID,
		"slot":          slot,
		"count":         completion.Count,
		"ready":         completion.Ready,
		"review_status": merchant.ReviewStatus,
	})

	set.ReviewStatus = merchant.ReviewStatus
	set.DocumentsSubmittedAt = merchant.DocumentsSubmittedAt
	return set, nil
}

// Decide records an admin verdict. Approval requires every required slot to
// be populated; this is the only path to the verified or rejected onboarding
// statuses.
func (s *documentService) Decide(merchantID uint, decision ReviewDecision, reviewerNote string, reviewerID uint) (*model.DocumentSet, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, ErrInvalidDecision
	}

	merchant, err := s.findMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	if merchant.OnboardingStatus != model.OnboardingUnderReview {
		logger.Warn("Review decision outside the under_review stage", map[string]interface{}{
			"merchant_id": merchantID,
			"status":      merchant.OnboardingStatus,
			"decision":    decision,
		})
		return nil, ErrNotUnderReview
	}

	set, err := s.GetDocumentSet(merchantID)
	if err != nil {
		return nil, err
	}

	if decision == DecisionApprove && !s.Completion(set).Ready {
		return nil, ErrDocumentsNotReady
	}

	now := time.Now()
	merchant.ReviewedAt = &now
	merchant.ReviewedBy = &reviewerID
	merchant.ReviewerNote = reviewerNote

	if decision == DecisionApprove {
		merchant.ReviewStatus = model.ReviewStatusApproved
		merchant.OnboardingStatus = model.OnboardingVerified
		merchant.VerifiedAt = &now
	} else {
		merchant.ReviewStatus = model.ReviewStatusRejected
		merchant.OnboardingStatus = model.OnboardingRejected
	}

	if err := s.merchantRepo.Update(merchant); err != nil {
		return nil, err
	}

	logger.Info("Merchant review decision recorded", map[string]interface{}{
		"merchant_id":   merchantID,
		"decision":      decision,
		"reviewer_id":   reviewerID,
		"review_status": merchant.ReviewStatus,
	})

	set.ReviewStatus = merchant.ReviewStatus
	set.ReviewerNote = merchant.ReviewerNote
	return set, nil
}

// Reopen resets a rejected merchant back to documents_pending so documents
// can be resubmitted. Explicit admin action, never automatic.
func (s *documentService) Reopen(merchantID uint) error {
	merchant, err := s.findMerchant(merchantID)
	if err != nil {
		return err
	}

	if !merchant.OnboardingStatus.CanTransition(model.OnboardingDocumentsPending) {
		return ErrInvalidTransition
	}

	merchant.OnboardingStatus = model.OnboardingDocumentsPending
	merchant.ReviewStatus = model.ReviewStatusIncomplete
	merchant.ReviewerNote = ""
	merchant.ReviewedAt = nil
	merchant.ReviewedBy = nil

	if err := s.merchantRepo.Update(merchant); err != nil {
		return err
	}

	logger.Info("Merchant reopened for document resubmission", map[string]interface{}{
		"merchant_id": merchantID,
	})
	return nil
}

// Transition moves the merchant to the next onboarding stage, rejecting any
// jump the state machine does not allow. Verified and rejected are reachable
// only through Decide.
func (s *documentService) Transition(merchantID uint, next model.OnboardingStatus) error {
	if next == model.OnboardingVerified || next == model.OnboardingRejected {
		return ErrInvalidTransition
	}

	merchant, err := s.findMerchant(merchantID)
	if err != nil {
		return err
	}

	if !merchant.OnboardingStatus.CanTransition(next) {
		logger.Warn("Rejected onboarding status transition", map[string]interface{}{
			"merchant_id": merchantID,
			"from":        merchant.OnboardingStatus,
			"to":          next,
		})
		return ErrInvalidTransition
	}

	return s.merchantRepo.UpdateStatus(merchantID, next)
}

func (s *documentService) findMerchant(merchantID uint) (*model.Merchant, error) {
	merchant, err := s.merchantRepo.FindByID(merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return merchant, nil
}
