package errors

import (
	"encoding/json"
	"strings"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeSignerRequired   ErrorCode = "signer_required"
	ErrCodePayloadTooLarge  ErrorCode = "payload_too_large"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeUploadFailed  ErrorCode = "upload_failed"
	ErrCodeMintFailed    ErrorCode = "mint_failed"
	ErrCodeTimeout       ErrorCode = "timeout"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// Response is the envelope every error is rendered in
type Response struct {
	Error *APIError `json:"error"`
}

func newError(code ErrorCode, message string, details []string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newError(ErrCodeBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newError(ErrCodeNotFound, message, details)
}

func NewValidationError(details ...string) *APIError {
	return newError(ErrCodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newError(ErrCodeUnauthorized, message, details)
}

func NewSignerRequiredError(details ...string) *APIError {
	return newError(ErrCodeSignerRequired, "Wallet not connected", details)
}

func NewPayloadTooLargeError(message string, details ...string) *APIError {
	return newError(ErrCodePayloadTooLarge, message, details)
}

func NewInternalError(message string, details ...string) *APIError {
	return newError(ErrCodeInternalError, message, details)
}

func NewUploadError(message string, details ...string) *APIError {
	return newError(ErrCodeUploadFailed, message, details)
}

func NewMintError(message string, details ...string) *APIError {
	return newError(ErrCodeMintFailed, message, details)
}

func NewTimeoutError(message string, details ...string) *APIError {
	return newError(ErrCodeTimeout, message, details)
}
