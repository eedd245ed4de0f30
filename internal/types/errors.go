package types

import "fmt"

// ErrorCode is a typed string for categorizing pipeline errors.
type ErrorCode string

// Error code constants. The prefix carries the recovery policy: provider_*
// and persistence_* failures are counted per location (or per chunk) and
// the run continues; configuration_* failures are fatal to the whole run
// because no location can possibly succeed.
const (
	// Upstream provider failures (recovered per location).
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	ErrCodeProviderMalformed   ErrorCode = "provider_malformed_payload"
	ErrCodeProviderRateLimited ErrorCode = "provider_rate_limited"

	// Persistence failures (recovered per location or per chunk).
	ErrCodePersistenceDelete  ErrorCode = "persistence_delete_failed"
	ErrCodePersistenceInsert  ErrorCode = "persistence_insert_failed"
	ErrCodePersistencePartial ErrorCode = "persistence_partial_failure"

	// Fatal failures.
	ErrCodeConfigurationMissing ErrorCode = "configuration_missing_dependency"
	ErrCodeInternalUnexpected   ErrorCode = "internal_unexpected_error"
)

// IsFatal reports whether an error carrying this code must abort the whole
// run instead of being swallowed into per-location counters.
func (c ErrorCode) IsFatal() bool {
	switch c {
	case ErrCodeConfigurationMissing, ErrCodeInternalUnexpected:
		return true
	default:
		return false
	}
}

// AppError is the standard application error type used throughout the
// pipeline. Domain errors are expressed as AppError to enable consistent
// formatting, recovery-policy decisions, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged
// in, leaving the original untouched.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
