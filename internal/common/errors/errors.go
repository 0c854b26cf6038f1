// Package errors provides the standardized error model of the booking flow.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	ErrCodePersistenceFailed        ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeSubmissionFailed         ErrorCode = "SUBMISSION_FAILED"
	ErrCodeSubmissionInvalidPayload ErrorCode = "SUBMISSION_INVALID_PAYLOAD"
	ErrCodeSubmissionInProgress     ErrorCode = "SUBMISSION_IN_PROGRESS"
	ErrCodeNetworkError             ErrorCode = "NETWORK_ERROR"
	ErrCodeSuggestionFailed         ErrorCode = "SUGGESTION_FAILED"
	ErrCodePrefetchFailed           ErrorCode = "PREFETCH_FAILED"
	ErrCodeAvailabilityFailed       ErrorCode = "AVAILABILITY_FAILED"
	ErrCodeRenderFault              ErrorCode = "RENDER_FAULT"
	ErrCodeFlowNotFound             ErrorCode = "FLOW_NOT_FOUND"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewValidationFailedError reports field errors; never retryable.
func NewValidationFailedError(fieldErrors map[string]string) *StandardError {
	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	e := newError(ErrCodeValidationFailed, "Booking form validation failed",
		fmt.Sprintf("fields: %s", strings.Join(fields, ",")), false, nil)
	return e.WithMetadata("fieldErrors", fieldErrors)
}

// NewPersistenceFailedError wraps a storage read/write failure.
func NewPersistenceFailedError(op, key string, err error) *StandardError {
	return newError(ErrCodePersistenceFailed, "Form state persistence failed",
		fmt.Sprintf("op: %s, key: %s, error: %v", op, key, err), true, err)
}

// NewSubmissionFailedError wraps a rejected or failed booking submission.
func NewSubmissionFailedError(status int, err error) *StandardError {
	details := fmt.Sprintf("status: %d", status)
	if err != nil {
		details = fmt.Sprintf("status: %d, error: %v", status, err)
	}
	return newError(ErrCodeSubmissionFailed, "Booking submission failed", details, status == 0 || status >= 500, err)
}

// NewSubmissionInvalidPayloadError reports a payload that failed schema validation.
func NewSubmissionInvalidPayloadError(details string) *StandardError {
	return newError(ErrCodeSubmissionInvalidPayload, "Booking payload does not match schema", details, false, nil)
}

// NewSubmissionInProgressError is returned for a submit issued while another is running.
func NewSubmissionInProgressError(flowID string) *StandardError {
	return newError(ErrCodeSubmissionInProgress, "A submission is already in progress",
		fmt.Sprintf("flowId: %s", flowID), false, nil)
}

// NewNetworkError wraps a transport failure against an external collaborator.
func NewNetworkError(service string, err error) *StandardError {
	return newError(ErrCodeNetworkError, fmt.Sprintf("Network error calling '%s'", service), err.Error(), true, err)
}

// NewSuggestionFailedError wraps a search collaborator failure.
func NewSuggestionFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeSuggestionFailed, "Suggestion lookup failed",
		fmt.Sprintf("kind: %s, error: %v", kind, err), true, err)
}

// NewPrefetchFailedError wraps a prefetch task failure.
func NewPrefetchFailedError(key string, err error) *StandardError {
	return newError(ErrCodePrefetchFailed, "Prefetch failed", fmt.Sprintf("key: %s, error: %v", key, err), true, err)
}

// NewAvailabilityFailedError wraps a scheduling collaborator failure.
func NewAvailabilityFailedError(artistID, date string, err error) *StandardError {
	return newError(ErrCodeAvailabilityFailed, "Availability lookup failed",
		fmt.Sprintf("artistId: %s, date: %s, error: %v", artistID, date, err), true, err)
}

// NewRenderFaultError wraps a fault captured by the recovery boundary.
func NewRenderFaultError(err error) *StandardError {
	return newError(ErrCodeRenderFault, "Unexpected fault in booking flow", err.Error(), true, err)
}

// NewFlowNotFoundError reports an unknown flow id.
func NewFlowNotFoundError(flowID string) *StandardError {
	return newError(ErrCodeFlowNotFound, "Booking flow not found", fmt.Sprintf("flowId: %s", flowID), false, nil)
}

// ==========================
// 3. Classification
// ==========================

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// IsRetryable reports whether the user may retry the same operation unchanged.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Normalize(err).Retryable
}

// HasCode reports whether err normalizes to the given code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return Normalize(err).Code == code
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"), strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "PERSISTENCE"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "SUBMISSION"), strings.Contains(codeStr, "NETWORK"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "SUGGESTION"), strings.Contains(codeStr, "PREFETCH"), strings.Contains(codeStr, "AVAILABILITY"):
		return "ENHANCEMENT"
	case strings.Contains(codeStr, "RENDER"):
		return "FAULT"
	default:
		return "OTHER"
	}
}
