// Package errors provides the categorized error taxonomy for the demand
// radar: recoverable signal/profile errors that skip rules, persistence
// failures that roll back a user's pass, and fatal configuration errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/demand-radar/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategorySignal represents signal provider failures (recoverable, rule skipped)
	CategorySignal ErrorCategory = "signal"
	// CategoryProfile represents invalid profile data (recoverable, rules skipped)
	CategoryProfile ErrorCategory = "profile"
	// CategoryPersistence represents alert store write failures (per-user rollback)
	CategoryPersistence ErrorCategory = "persistence"
	// CategoryConfiguration represents malformed configuration (fatal at startup)
	CategoryConfiguration ErrorCategory = "configuration"
	// CategoryValidation represents request validation errors (4xx)
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryConflict represents conflict errors
	CategoryConflict ErrorCategory = "conflict"
	// CategorySystem represents unexpected internal errors
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewSignalUnavailableError creates a signal provider failure. Rules fed by
// the provider are skipped for the current pass; the pass continues.
func NewSignalUnavailableError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySignal,
		StatusCode: http.StatusBadGateway,
		Code:       "SIGNAL_UNAVAILABLE",
		Message:    fmt.Sprintf("signal provider unavailable: %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewInvalidProfileError creates an invalid profile error. The affected rules
// are skipped silently; nothing is surfaced to the end user.
func NewInvalidProfileError(userID string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProfile,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "INVALID_PROFILE",
		Message:    fmt.Sprintf("invalid profile: %s", reason),
		Details: map[string]interface{}{
			"userId": userID,
			"reason": reason,
		},
	}
}

// NewPersistenceFailureError creates an alert store write error. The per-user
// transaction rolls back; the next scheduled pass retries naturally.
func NewPersistenceFailureError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPersistence,
		StatusCode: http.StatusInternalServerError,
		Code:       "PERSISTENCE_FAILURE",
		Message:    fmt.Sprintf("persistence failure during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewConfigurationError creates a malformed-configuration error.
// Fatal at startup, never per-pass.
func NewConfigurationError(key string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConfiguration,
		StatusCode: http.StatusInternalServerError,
		Code:       "CONFIGURATION_ERROR",
		Message:    fmt.Sprintf("invalid configuration for %s: %s", key, reason),
		Details: map[string]interface{}{
			"key":    key,
			"reason": reason,
		},
	}
}

// NewInvalidParameterError creates an invalid request parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// NewInternalError creates an unexpected internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsSignalUnavailable reports whether err is a signal provider failure.
func IsSignalUnavailable(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategorySignal
}

// IsPersistenceFailure reports whether err is an alert store write failure.
func IsPersistenceFailure(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryPersistence
}

// IsRetryable determines if an error should trigger a provider retry
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategorySignal, CategoryPersistence:
		return true
	default:
		return false
	}
}
