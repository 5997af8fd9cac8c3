package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aminimarket/marketplace-backend/internal/app/model"
	"github.com/aminimarket/marketplace-backend/internal/app/repository"
	"github.com/aminimarket/marketplace-backend/internal/db"
	"github.com/aminimarket/marketplace-backend/internal/queue"
	"github.com/aminimarket/marketplace-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmailSender records delivered emails and fails for configured recipients
type mockEmailSender struct {
	sent    []string
	bodies  map[string]string
	failFor map[string]error
	onSend  func(to string)
}

func newMockEmailSender() *mockEmailSender {
	return &mockEmailSender{bodies: map[string]string{}, failFor: map[string]error{}}
}

func (m *mockEmailSender) Send(_ context.Context, to, _, htmlBody string) error {
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, to)
	m.bodies[to] = htmlBody
	if m.onSend != nil {
		m.onSend(to)
	}
	return nil
}

func setupOnboardingServiceTest(t *testing.T) (OnboardingService, repository.MerchantRepository, *queue.Store, *mockEmailSender) {
	t.Helper()

	testDB, err := db.SetupTestDB(t)
	require.NoError(t, err)

	store, err := queue.NewStore(t.TempDir())
	require.NoError(t, err)

	merchantRepo := repository.NewMerchantRepository(testDB)
	tokenRepo := repository.NewSetupTokenRepository(testDB)
	tokenService := NewTokenService(tokenRepo)
	documentService := NewDocumentService(merchantRepo)
	sender := newMockEmailSender()

	svc := NewOnboardingService(
		merchantRepo,
		tokenService,
		documentService,
		store,
		sender,
		"https://shop.aminimarket.com",
		0,
	)
	return svc, merchantRepo, store, sender
}

func TestOnboardingService_CreateMerchant(t *testing.T) {
	svc, repo, _, _ := setupOnboardingServiceTest(t)

	merchant, bundle, err := svc.CreateMerchant(CreateMerchantInput{
		BusinessName: "Kisumu Fresh Produce",
		Email:        "Owner@KisumuFresh.com",
		Phone:        "+254700000001",
		OwnerName:    "A. Otieno",
	}, CreateOptions{CreatedBy: "admin:1"})
	require.NoError(t, err)

	// Email normalized, status advanced through credentials_sent
	assert.Equal(t, "owner@kisumufresh.com", merchant.Email)
	assert.Equal(t, model.OnboardingCredentialsSent, merchant.OnboardingStatus)

	stored, err := repo.FindByID(merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OnboardingCredentialsSent, stored.OnboardingStatus)
	assert.NotNil(t, stored.CredentialsSentAt)

	// Temp password meets policy and verifies against the stored hash
	assert.GreaterOrEqual(t, len(bundle.TempPassword), 12)
	assert.True(t, util.VerifyPassword(stored.PasswordHash, bundle.TempPassword))

	// Setup URL ends in the 64-hex plaintext token
	assert.Regexp(t,
		regexp.MustCompile(`^https://shop\.aminimarket\.com/merchant/account-setup/[0-9a-f]{64}$`),
		bundle.SetupURL)
	assert.True(t, strings.HasSuffix(bundle.SetupURL, bundle.SetupToken))
	assert.Equal(t, "https://shop.aminimarket.com/auth?merchant=true", bundle.LoginURL)
}

func TestOnboardingService_CreateMerchant_Validation(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	tests := []struct {
		name        string
		input       CreateMerchantInput
		expectedErr error
	}{
		{
			name:        "Missing business name",
			input:       CreateMerchantInput{Email: "x@example.com"},
			expectedErr: ErrMissingBusiness,
		},
		{
			name:        "Invalid email",
			input:       CreateMerchantInput{BusinessName: "Shop", Email: "not-an-email"},
			expectedErr: ErrInvalidEmail,
		},
		{
			name:        "Empty email",
			input:       CreateMerchantInput{BusinessName: "Shop"},
			expectedErr: ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateMerchant(tt.input, CreateOptions{})
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestOnboardingService_CreateMerchant_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	input := CreateMerchantInput{BusinessName: "Shop One", Email: "dup@example.com"}
	_, _, err := svc.CreateMerchant(input, CreateOptions{})
	require.NoError(t, err)

	// Same address with different casing still collides
	input.Email = "DUP@example.com"
	_, _, err = svc.CreateMerchant(input, CreateOptions{})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestOnboardingService_CreateMerchantsBatch(t *testing.T) {
	svc, _, store, _ := setupOnboardingServiceTest(t)

	inputs := []CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
		{BusinessName: "Shop B", Email: "b@example.com"},
		{BusinessName: "Shop C", Email: "c@example.com"},
	}

	scheduledFor := time.Now().Add(24 * time.Hour)
	report, err := svc.CreateMerchantsBatch(inputs, scheduledFor, CreateOptions{
		CreatedBy:    "importer",
		Programmatic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Successes)
	assert.Equal(t, 0, report.Failures)

	q, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, q)
	require.Len(t, q.Entries, 3)

	// Entries carry the full credential bundle and the manual-review flag
	entry := q.Entries[0]
	assert.Equal(t, "a@example.com", entry.Merchant.Email)
	assert.Equal(t, "Shop A", entry.Merchant.BusinessName)
	assert.NotEmpty(t, entry.Credentials.TempPassword)
	assert.NotEmpty(t, entry.SetupToken)
	assert.True(t, entry.NeedsManualReview)
}

func TestOnboardingService_CreateMerchantsBatch_PartialFailure(t *testing.T) {
	svc, _, store, _ := setupOnboardingServiceTest(t)

	// Seed the duplicate up front
	_, _, err := svc.CreateMerchant(CreateMerchantInput{
		BusinessName: "Existing Shop", Email: "taken@example.com",
	}, CreateOptions{})
	require.NoError(t, err)

	inputs := []CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
		{BusinessName: "Duplicate", Email: "taken@example.com"},
		{BusinessName: "Shop C", Email: "c@example.com"},
	}

	report, err := svc.CreateMerchantsBatch(inputs, time.Now(), CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Successes)
	assert.Equal(t, 1, report.Failures)

	require.Len(t, report.Items, 3)
	assert.True(t, report.Items[0].Success)
	assert.False(t, report.Items[1].Success)
	assert.Contains(t, report.Items[1].Error, "already exists")

	// Only the created merchants are queued
	q, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Len(t, q.Entries, 2)
}

func TestOnboardingService_CreateMerchantsBatch_QueueAlreadyPending(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	_, err := svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
	}, time.Now(), CreateOptions{})
	require.NoError(t, err)

	// The second batch creates its merchant but cannot queue it
	report, err := svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop B", Email: "b@example.com"},
	}, time.Now(), CreateOptions{})
	assert.ErrorIs(t, err, queue.ErrQueueAlreadyPending)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Successes)
}

func TestOnboardingService_UpsertFromFeed(t *testing.T) {
	svc, repo, _, _ := setupOnboardingServiceTest(t)

	records := []FeedRecord{
		{ExternalID: "EXT-001", BusinessName: "Shop A", Email: "a@example.com", Phone: "111"},
		{ExternalID: "EXT-002", BusinessName: "Shop B", Email: "b@example.com"},
	}

	report, err := svc.UpsertFromFeed(records, "importer")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)

	// Re-running the identical feed is idempotent
	report, err = svc.UpsertFromFeed(records, "importer")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 0, report.Failed)

	// An edited feed overwrites fields wholesale
	records[0].Phone = "222"
	records[0].OwnerName = "New Owner"
	_, err = svc.UpsertFromFeed(records, "importer")
	require.NoError(t, err)

	merchant, err := repo.FindByExternalID("EXT-001")
	require.NoError(t, err)
	assert.Equal(t, "222", merchant.Phone)
	assert.Equal(t, "New Owner", merchant.OwnerName)
}

func TestOnboardingService_UpsertFromFeed_PreservesCredentials(t *testing.T) {
	svc, repo, _, _ := setupOnboardingServiceTest(t)

	_, err := svc.UpsertFromFeed([]FeedRecord{
		{ExternalID: "EXT-001", BusinessName: "Shop A", Email: "a@example.com"},
	}, "importer")
	require.NoError(t, err)

	merchant, err := repo.FindByExternalID("EXT-001")
	require.NoError(t, err)
	merchant.PasswordHash = "set-by-merchant"
	merchant.OnboardingStatus = model.OnboardingDocumentsPending
	require.NoError(t, repo.Update(merchant))

	// A later feed run must not reset the password or onboarding progress
	_, err = svc.UpsertFromFeed([]FeedRecord{
		{ExternalID: "EXT-001", BusinessName: "Shop A Renamed", Email: "a@example.com"},
	}, "importer")
	require.NoError(t, err)

	merchant, err = repo.FindByExternalID("EXT-001")
	require.NoError(t, err)
	assert.Equal(t, "Shop A Renamed", merchant.BusinessName)
	assert.Equal(t, "set-by-merchant", merchant.PasswordHash)
	assert.Equal(t, model.OnboardingDocumentsPending, merchant.OnboardingStatus)
}

func TestOnboardingService_UpsertFromFeed_MissingExternalID(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	report, err := svc.UpsertFromFeed([]FeedRecord{
		{BusinessName: "No ID Shop", Email: "noid@example.com"},
	}, "importer")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[0].Error, "external id")
}

func TestOnboardingService_SetupAccount(t *testing.T) {
	svc, repo, _, _ := setupOnboardingServiceTest(t)

	merchant, bundle, err := svc.CreateMerchant(CreateMerchantInput{
		BusinessName: "Shop A", Email: "a@example.com",
	}, CreateOptions{})
	require.NoError(t, err)

	updated, err := svc.SetupAccount("a@example.com", bundle.SetupToken, "My-New-Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, model.OnboardingDocumentsPending, updated.OnboardingStatus)

	stored, err := repo.FindByID(merchant.ID)
	require.NoError(t, err)
	assert.True(t, util.VerifyPassword(stored.PasswordHash, "My-New-Passw0rd!"))
	assert.False(t, util.VerifyPassword(stored.PasswordHash, bundle.TempPassword))

	// The token is single use
	_, err = svc.SetupAccount("a@example.com", bundle.SetupToken, "Another-Passw0rd!")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestOnboardingService_SetupAccount_WrongToken(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	_, _, err := svc.CreateMerchant(CreateMerchantInput{
		BusinessName: "Shop A", Email: "a@example.com",
	}, CreateOptions{})
	require.NoError(t, err)

	_, err = svc.SetupAccount("a@example.com", strings.Repeat("0", 64), "My-New-Passw0rd!")
	assert.ErrorIs(t, err, ErrTokenMismatch)

	_, err = svc.SetupAccount("nobody@example.com", strings.Repeat("0", 64), "My-New-Passw0rd!")
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}

func TestOnboardingService_DispatchQueue(t *testing.T) {
	svc, _, store, sender := setupOnboardingServiceTest(t)

	_, err := svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
		{BusinessName: "Shop B", Email: "b@example.com"},
	}, time.Now().Add(-time.Minute), CreateOptions{})
	require.NoError(t, err)

	report, err := svc.DispatchQueue(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Successes())
	assert.Equal(t, 0, report.Failures())

	// Welcome bodies carry the setup link, never logged anywhere else
	assert.Contains(t, sender.bodies["a@example.com"], "/merchant/account-setup/")

	// The pending artifact is archived away
	q, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestOnboardingService_DispatchQueue_NotDue(t *testing.T) {
	svc, _, store, _ := setupOnboardingServiceTest(t)

	_, err := svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
	}, time.Now().Add(24*time.Hour), CreateOptions{})
	require.NoError(t, err)

	_, err = svc.DispatchQueue(context.Background(), false)
	assert.ErrorIs(t, err, ErrQueueNotDue)

	// Force overrides the schedule
	report, err := svc.DispatchQueue(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Successes())

	q, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestOnboardingService_DispatchQueue_Empty(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	_, err := svc.DispatchQueue(context.Background(), true)
	assert.ErrorIs(t, err, ErrNoPendingQueue)
}

func TestOnboardingService_DispatchQueue_PartialFailureStillArchives(t *testing.T) {
	svc, _, store, sender := setupOnboardingServiceTest(t)
	sender.failFor["b@example.com"] = errors.New("smtp timeout")

	_, err := svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
		{BusinessName: "Shop B", Email: "b@example.com"},
		{BusinessName: "Shop C", Email: "c@example.com"},
	}, time.Now().Add(-time.Minute), CreateOptions{})
	require.NoError(t, err)

	report, err := svc.DispatchQueue(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Successes())
	assert.Equal(t, 1, report.Failures())

	// Every entry was attempted, so the batch archives even with failures
	q, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, q)

	// A fresh batch can now be enqueued
	_, err = svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop D", Email: "d@example.com"},
	}, time.Now(), CreateOptions{})
	assert.NoError(t, err)
}

func TestOnboardingService_DispatchQueue_CancelledKeepsPending(t *testing.T) {
	svc, _, store, sender := setupOnboardingServiceTest(t)

	_, err := svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
		{BusinessName: "Shop B", Email: "b@example.com"},
	}, time.Now().Add(-time.Minute), CreateOptions{})
	require.NoError(t, err)

	// Cancel after the first delivery goes out
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender.onSend = func(string) { cancel() }

	report, err := svc.DispatchQueue(ctx, false)
	assert.ErrorIs(t, err, ErrDispatchCancelled)

	// The partial report still says what went out before the cancel
	require.NotNil(t, report)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Successes())
	assert.Equal(t, "a@example.com", report.Results[0].Email)

	// The artifact survives for the next dispatcher run
	q, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Len(t, q.Entries, 2)
}

func TestOnboardingService_QueueStatusAndDiscard(t *testing.T) {
	svc, _, _, _ := setupOnboardingServiceTest(t)

	q, err := svc.QueueStatus()
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = svc.CreateMerchantsBatch([]CreateMerchantInput{
		{BusinessName: "Shop A", Email: "a@example.com"},
	}, time.Now(), CreateOptions{})
	require.NoError(t, err)

	q, err = svc.QueueStatus()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Len(t, q.Entries, 1)

	require.NoError(t, svc.DiscardQueue())

	q, err = svc.QueueStatus()
	require.NoError(t, err)
	assert.Nil(t, q)
}
