package errors

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorInfo carries an error code plus a user-facing message
type ErrorInfo struct {
	Code    string // error code (see codes.go)
	Message string
}

// Postgres error classes we care about
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// ParseError converts a raw database/service error into a code and a message
// safe to show to an operator. Sensitive driver detail is never passed through.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "an unexpected error occurred"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return parseDuplicateKeyError(pqErr)
		case pgForeignKeyViolation:
			return ErrorInfo{Code: ResourceNotFound, Message: "referenced record does not exist"}
		case pgNotNullViolation:
			return ErrorInfo{Code: ValidationRequired, Message: "a required field is missing"}
		}
	}

	// sqlite (tests) and other drivers report constraint violations as text
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyText(errLower)
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "an external service is unreachable, please retry shortly",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

// IsDuplicateKey reports whether err is a unique-constraint violation,
// regardless of driver.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint")
}

func parseDuplicateKeyError(pqErr *pq.Error) ErrorInfo {
	return parseDuplicateKeyText(strings.ToLower(pqErr.Constraint + " " + pqErr.Detail))
}

func parseDuplicateKeyText(errLower string) ErrorInfo {
	if strings.Contains(errLower, "email") {
		return ErrorInfo{Code: MerchantEmailExists, Message: "a merchant with this email already exists"}
	}
	if strings.Contains(errLower, "external_id") {
		return ErrorInfo{Code: MerchantExternalIDExists, Message: "a merchant with this feed id already exists"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "this record already exists"}
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "merchant") {
		return "merchant not found"
	}
	if strings.Contains(contextLower, "token") {
		return "setup token not found"
	}
	if strings.Contains(contextLower, "document") {
		return "document not found"
	}
	if strings.Contains(contextLower, "queue") {
		return "delivery queue not found"
	}
	return "requested record not found"
}

func defaultMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "create") {
		return "failed to create record, please retry shortly"
	}
	if strings.Contains(contextLower, "update") {
		return "failed to update record, please retry shortly"
	}
	if strings.Contains(contextLower, "dispatch") {
		return "credential dispatch failed, please retry shortly"
	}
	return "an unexpected error occurred, please retry shortly"
}
