package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to localized messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email/password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // JWT expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // malformed/invalid JWT

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // no access
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // role missing from context
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // admin only

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Merchant (MERCHANT_) ====================
	MerchantNotFound          = "MERCHANT_NOT_FOUND"
	MerchantEmailExists       = "MERCHANT_EMAIL_EXISTS"       // duplicate email
	MerchantExternalIDExists  = "MERCHANT_EXTERNAL_ID_EXISTS" // duplicate feed id
	MerchantInvalidTransition = "MERCHANT_INVALID_TRANSITION" // onboarding state jump

	// ==================== Setup token (TOKEN_) ====================
	TokenNotFound = "TOKEN_NOT_FOUND" // no token on file
	TokenExpired  = "TOKEN_EXPIRED"   // past the 14-day window
	TokenMismatch = "TOKEN_MISMATCH"  // supplied value does not match

	// ==================== Documents (DOCUMENT_) ====================
	DocumentInvalidSlot    = "DOCUMENT_INVALID_SLOT"
	DocumentSetNotReady    = "DOCUMENT_SET_NOT_READY" // approve before all slots filled
	DocumentAlreadyFinal   = "DOCUMENT_ALREADY_FINAL" // decision already recorded
	DocumentNotUnderReview = "DOCUMENT_NOT_UNDER_REVIEW"

	// ==================== Delivery queue (QUEUE_) ====================
	QueueAlreadyPending = "QUEUE_ALREADY_PENDING" // undelivered queue exists
	QueueNotFound       = "QUEUE_NOT_FOUND"       // nothing pending to drain
	QueueDispatchLocked = "QUEUE_DISPATCH_LOCKED" // another dispatcher is running
	QueuePersistFailed  = "QUEUE_PERSIST_FAILED"  // artifact write failed

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
