package domain

import (
	"errors"
	"fmt"
	"time"
)

// Session and relay sentinels.
var (
	ErrUnknownField       = errors.New("unknown field for current variant")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrSuperseded         = errors.New("submission superseded by a newer session state")
	ErrEmptyMessage       = errors.New("message must not be empty")
)

// FailureMessage is the only failure text ever shown to a user.
const FailureMessage = "Prediction failed. Please check your inputs and try again."

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput       = "INVALID_INPUT"
	ErrValidation         = "VALIDATION_ERROR"
	ErrSubmissionConflict = "SUBMISSION_IN_FLIGHT"
	ErrSubmissionStale    = "SUBMISSION_SUPERSEDED"
	ErrExternalAPI        = "EXTERNAL_API_ERROR"
	ErrRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError wrapping the sentinel cause.
func NewValidationError(field string, value interface{}, cause error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: cause.Error(),
		Value:   value,
		Err:     cause,
	}
}

// FailureKind classifies why a call across the prediction boundary failed.
type FailureKind string

const (
	FailureTransport   FailureKind = "transport"
	FailureStatus      FailureKind = "status"
	FailureDecode      FailureKind = "decode"
	FailureCircuitOpen FailureKind = "circuit_open"
	FailureCanceled    FailureKind = "canceled"
)

// PredictionError is returned by the prediction client for every failed call.
type PredictionError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *PredictionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("prediction %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("prediction %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("prediction %s error: %s", e.Kind, e.Message)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind of err, or "" when err is not a
// PredictionError.
func KindOf(err error) FailureKind {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
