package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/internal/queue"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/aminimarket/marketplace-backend/pkg/mailer"
	"github.com/aminimarket/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("a merchant with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrMissingBusiness    = errors.New("business name is required")
	ErrMissingExternalID  = errors.New("feed record is missing its external id")
	ErrNoPendingQueue     = errors.New("no pending credential queue to dispatch")
	ErrQueueNotDue        = errors.New("pending queue is not due for dispatch yet")
	ErrDispatchCancelled  = errors.New("dispatch cancelled before all entries were attempted")
)

// perSendTimeout bounds one email delivery so a stuck recipient cannot stall
// the whole batch.
const perSendTimeout = 30 * time.Second

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// CreateMerchantInput is the validated payload for a single merchant account
type CreateMerchantInput struct {
	BusinessName string
	Email        string
	Phone        string
	OwnerName    string
	ExternalID   string
}

// CreateOptions tunes how a merchant account is created
type CreateOptions struct {
	CreatedBy    string // origin of creation: bulk import, admin script, API
	Programmatic bool
	AutoVerify   bool // trusted source; the credential email is not flagged for manual review
}

// CredentialsBundle is returned once at creation time. The caller must
// deliver it (usually by enqueueing it) and never store the plaintext.
type CredentialsBundle struct {
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
	SetupToken   string `json:"setup_token"`
	SetupURL     string `json:"setup_url"`
	LoginURL     string `json:"login_url"`
}

// BatchItem is the per-input outcome of a batch create
type BatchItem struct {
	Email      string `json:"email"`
	Success    bool   `json:"success"`
	MerchantID uint   `json:"merchant_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchReport summarizes a CreateMerchantsBatch run
type BatchReport struct {
	Successes int                  `json:"successes"`
	Failures  int                  `json:"failures"`
	Items     []BatchItem          `json:"items"`
	Queue     *queue.DeliveryQueue `json:"-"`
}

// FeedRecord is one row of the external merchant data feed
type FeedRecord struct {
	ExternalID   string `json:"external_id"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	OwnerName    string `json:"owner_name"`
}

// FeedReport summarizes an UpsertFromFeed run
type FeedReport struct {
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Failed  int         `json:"failed"`
	Items   []BatchItem `json:"items"`
}

// OnboardingService glues merchant creation, token issuance and credential
// delivery together.
type OnboardingService interface {
	CreateMerchant(input CreateMerchantInput, opts CreateOptions) (*model.Merchant, *CredentialsBundle, error)
	CreateMerchantsBatch(inputs []CreateMerchantInput, scheduledFor time.Time, opts CreateOptions) (*BatchReport, error)
	UpsertFromFeed(records []FeedRecord, createdBy string) (*FeedReport, error)
	SetupAccount(email, token, newPassword string) (*model.Merchant, error)
	DispatchQueue(ctx context.Context, force bool) (*queue.DeliveryReport, error)
	QueueStatus() (*queue.DeliveryQueue, error)
	DiscardQueue() error
}

type onboardingService struct {
	merchantRepo   repository.MerchantRepository
	tokenService   TokenService
	docService     DocumentService
	store          *queue.Store
	sender         mailer.EmailSender
	baseURL        string
	interSendDelay time.Duration
}

func NewOnboardingService(
	merchantRepo repository.MerchantRepository,
	tokenService TokenService,
	docService DocumentService,
	store *queue.Store,
	sender mailer.EmailSender,
	baseURL string,
	interSendDelay time.Duration,
) OnboardingService {
	return &onboardingService{
		merchantRepo:   merchantRepo,
		tokenService:   tokenService,
		docService:     docService,
		store:          store,
		sender:         sender,
		baseURL:        strings.TrimRight(baseURL, "/"),
		interSendDelay: interSendDelay,
	}
}

// CreateMerchant provisions a merchant account: temporary password, setup
// token, onboarding status credentials_sent. The plaintext credentials exist
// only in the returned bundle (and later in the delivery queue artifact);
// they are never logged or stored in the merchant record.
func (s *onboardingService) CreateMerchant(input CreateMerchantInput, opts CreateOptions) (*model.Merchant, *CredentialsBundle, error) {
	if err := validateMerchantInput(&input); err != nil {
		return nil, nil, err
	}

	logger.Info("Creating merchant account", map[string]interface{}{
		"email":         input.Email,
		"business_name": input.BusinessName,
		"created_by":    opts.CreatedBy,
	})

	if _, err := s.merchantRepo.FindByEmail(input.Email); err == nil {
		logger.Warn("Merchant creation failed: email already exists", map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	tempPassword, err := util.GenerateTempPassword()
	if err != nil {
		logger.Error("Failed to generate temporary password", err, nil)
		return nil, nil, err
	}

	passwordHash, err := util.HashPassword(tempPassword)
	if err != nil {
		logger.Error("Failed to hash temporary password", err, nil)
		return nil, nil, err
	}

	merchant := &model.Merchant{
		Email:                   input.Email,
		PasswordHash:            passwordHash,
		BusinessName:            input.BusinessName,
		OwnerName:               input.OwnerName,
		Phone:                   input.Phone,
		OnboardingStatus:        model.OnboardingCredentialsPending,
		CreatedProgrammatically: opts.Programmatic,
		CreatedBy:               opts.CreatedBy,
		ReviewStatus:            model.ReviewStatusPending,
	}
	if input.ExternalID != "" {
		merchant.ExternalID = &input.ExternalID
	}
	if err := s.merchantRepo.Create(merchant); err != nil {
		return nil, nil, err
	}

	plaintext, _, err := s.tokenService.Issue(merchant.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.merchantRepo.UpdateStatus(merchant.ID, model.OnboardingCredentialsSent); err != nil {
		return nil, nil, err
	}
	merchant.OnboardingStatus = model.OnboardingCredentialsSent

	bundle := &CredentialsBundle{
		Email:        merchant.Email,
		TempPassword: tempPassword,
		SetupToken:   plaintext,
		SetupURL:     fmt.Sprintf("%s/merchant/account-setup/%s", s.baseURL, plaintext),
		LoginURL:     fmt.Sprintf("%s/auth?merchant=true", s.baseURL),
	}

	logger.Info("Merchant account created", map[string]interface{}{
		"merchant_id": merchant.ID,
		"email":       merchant.Email,
		"status":      merchant.OnboardingStatus,
	})
	return merchant, bundle, nil
}

// CreateMerchantsBatch creates every input it can, isolating per-input
// failures, then enqueues a single credential delivery batch for the
// successfully created merchants.
func (s *onboardingService) CreateMerchantsBatch(inputs []CreateMerchantInput, scheduledFor time.Time, opts CreateOptions) (*BatchReport, error) {
	logger.Info("Creating merchant batch", map[string]interface{}{
		"count":         len(inputs),
		"scheduled_for": scheduledFor,
		"created_by":    opts.CreatedBy,
	})

	report := &BatchReport{Items: make([]BatchItem, 0, len(inputs))}
	entries := make([]queue.Entry, 0, len(inputs))

	for _, input := range inputs {
		merchant, bundle, err := s.CreateMerchant(input, opts)
		if err != nil {
			report.Failures++
			report.Items = append(report.Items, BatchItem{
				Email:   input.Email,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		report.Successes++
		report.Items = append(report.Items, BatchItem{
			Email:      merchant.Email,
			Success:    true,
			MerchantID: merchant.ID,
		})
		entries = append(entries, queue.Entry{
			Merchant: queue.MerchantSnapshot{
				InternalID:   merchant.ID,
				BusinessName: merchant.BusinessName,
				Email:        merchant.Email,
			},
			Credentials: queue.Credentials{
				Email:        bundle.Email,
				TempPassword: bundle.TempPassword,
				SetupURL:     bundle.SetupURL,
				LoginURL:     bundle.LoginURL,
			},
			SetupToken:        bundle.SetupToken,
			NeedsManualReview: !opts.AutoVerify,
		})
	}

	if len(entries) > 0 {
		q, err := s.store.Enqueue(entries, scheduledFor, scheduledFor.Format("15:04 MST"))
		if err != nil {
			// Merchants exist but their credentials are not queued; surface
			// the error so the operator can drain/discard and retry.
			logger.Error("Failed to enqueue credential batch", err, map[string]interface{}{
				"created": report.Successes,
			})
			return report, err
		}
		report.Queue = q
	}

	logger.Info("Merchant batch complete", map[string]interface{}{
		"successes": report.Successes,
		"failures":  report.Failures,
		"queued":    len(entries),
	})
	return report, nil
}

// UpsertFromFeed imports merchant records keyed by their stable external id.
// Existing records are overwritten field-for-field (not merged), so re-running
// the same feed is idempotent. Re-running a partially edited feed will blank
// fields the feed omits.
func (s *onboardingService) UpsertFromFeed(records []FeedRecord, createdBy string) (*FeedReport, error) {
	logger.Info("Upserting merchants from feed", map[string]interface{}{
		"count":      len(records),
		"created_by": createdBy,
	})

	report := &FeedReport{Items: make([]BatchItem, 0, len(records))}

	for _, record := range records {
		if record.ExternalID == "" {
			report.Failed++
			report.Items = append(report.Items, BatchItem{
				Email: record.Email, Success: false, Error: ErrMissingExternalID.Error(),
			})
			continue
		}
		input := CreateMerchantInput{
			BusinessName: record.BusinessName,
			Email:        record.Email,
			Phone:        record.Phone,
			OwnerName:    record.OwnerName,
			ExternalID:   record.ExternalID,
		}
		if err := validateMerchantInput(&input); err != nil {
			report.Failed++
			report.Items = append(report.Items, BatchItem{
				Email: record.Email, Success: false, Error: err.Error(),
			})
			continue
		}

		existing, err := s.merchantRepo.FindByExternalID(input.ExternalID)
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !isNew {
			report.Failed++
			report.Items = append(report.Items, BatchItem{
				Email: input.Email, Success: false, Error: err.Error(),
			})
			continue
		}

		merchant := &model.Merchant{
			ExternalID:              &input.ExternalID,
			Email:                   input.Email,
			BusinessName:            input.BusinessName,
			OwnerName:               input.OwnerName,
			Phone:                   input.Phone,
			CreatedProgrammatically: true,
			CreatedBy:               createdBy,
		}
		if isNew {
			merchant.OnboardingStatus = model.OnboardingCredentialsPending
			merchant.ReviewStatus = model.ReviewStatusPending
		}

		// The conflict clause only assigns feed-owned columns, so password
		// hashes and onboarding progress on existing rows are untouched.
		if err := s.merchantRepo.Upsert(merchant); err != nil {
			report.Failed++
			report.Items = append(report.Items, BatchItem{
				Email: input.Email, Success: false, Error: err.Error(),
			})
			continue
		}

		merchantID := merchant.ID
		if isNew {
			report.Created++
		} else {
			report.Updated++
			merchantID = existing.ID
		}
		report.Items = append(report.Items, BatchItem{
			Email: input.Email, Success: true, MerchantID: merchantID,
		})
	}

	logger.Info("Feed upsert complete", map[string]interface{}{
		"created": report.Created,
		"updated": report.Updated,
		"failed":  report.Failed,
	})
	return report, nil
}

// SetupAccount completes first login: the setup token is verified and
// consumed (single use), the merchant chooses a real password, and the
// onboarding stage advances to documents_pending.
func (s *onboardingService) SetupAccount(email, token, newPassword string) (*model.Merchant, error) {
	merchant, err := s.merchantRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}

	if err := s.tokenService.Verify(merchant.ID, token); err != nil {
		return nil, err
	}

	passwordHash, err := util.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	merchant.PasswordHash = passwordHash
	if err := s.merchantRepo.Update(merchant); err != nil {
		return nil, err
	}

	if err := s.tokenService.Consume(merchant.ID); err != nil {
		return nil, err
	}

	if err := s.docService.Transition(merchant.ID, model.OnboardingDocumentsPending); err != nil {
		return nil, err
	}
	merchant.OnboardingStatus = model.OnboardingDocumentsPending

	logger.Info("Merchant account setup completed", map[string]interface{}{
		"merchant_id": merchant.ID,
		"email":       merchant.Email,
	})
	return merchant, nil
}

// DispatchQueue drains the pending credential queue through the email sender
// and archives the result. A partial per-entry failure still archives; a
// cancellation mid-drain leaves the pending artifact in place so a restarted
// dispatcher resumes the batch.
func (s *onboardingService) DispatchQueue(ctx context.Context, force bool) (*queue.DeliveryReport, error) {
	q, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if q == nil || len(q.Entries) == 0 {
		return nil, ErrNoPendingQueue
	}
	if !force && !q.Due(time.Now()) {
		logger.Info("Pending queue not yet due", map[string]interface{}{
			"scheduled_for": q.ScheduledFor,
		})
		return nil, ErrQueueNotDue
	}

	drainer := queue.NewDrainer(&welcomeSender{sender: s.sender}, s.interSendDelay)
	report := drainer.Drain(ctx, q)

	if len(report.Results) < len(q.Entries) {
		// Cancelled before every entry was attempted. The pending artifact
		// stays on disk untouched; the next dispatch re-attempts the batch.
		return report, ErrDispatchCancelled
	}

	if _, err := s.store.Archive(q, report); err != nil {
		// Never report an unarchived pass as delivered
		return report, err
	}
	return report, nil
}

// QueueStatus returns the pending queue, or nil when none exists
func (s *onboardingService) QueueStatus() (*queue.DeliveryQueue, error) {
	return s.store.Load()
}

// DiscardQueue drops the pending queue without sending. Explicit operator
// action; the created merchants keep their issued tokens and can be re-queued
// by re-issuing credentials.
func (s *onboardingService) DiscardQueue() error {
	return s.store.Discard()
}

// welcomeSender adapts the EmailSender transport to queue entries, building
// the welcome body and bounding each send with a timeout.
type welcomeSender struct {
	sender mailer.EmailSender
}

func (w *welcomeSender) Send(ctx context.Context, entry queue.Entry) error {
	body := mailer.BuildWelcomeEmail(
		entry.Merchant.BusinessName,
		entry.Credentials.Email,
		entry.Credentials.TempPassword,
		entry.Credentials.SetupURL,
		entry.Credentials.LoginURL,
	)

	sendCtx, cancel := context.WithTimeout(ctx, perSendTimeout)
	defer cancel()
	return w.sender.Send(sendCtx, entry.Merchant.Email, mailer.WelcomeSubject, body)
}

func validateMerchantInput(input *CreateMerchantInput) error {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.BusinessName = strings.TrimSpace(input.BusinessName)

	if input.BusinessName == "" {
		return ErrMissingBusiness
	}
	if !emailPattern.MatchString(input.Email) {
		return ErrInvalidEmail
	}
	return nil
}
