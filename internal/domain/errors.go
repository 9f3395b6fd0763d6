package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes for categorization
const (
	// Client errors (4xx)
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeBadRequest = "BAD_REQUEST"

	// Page-fetch errors
	ErrCodeFetch   = "FETCH_ERROR"
	ErrCodeTimeout = "TIMEOUT_ERROR"

	// Model endpoint errors
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeMalformedReply  = "MALFORMED_REPLY"
	ErrCodeUnparsableReply = "UNPARSABLE_REPLY"

	// Server errors (5xx)
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeExtractionFailed = "EXTRACTION_FAILED"
)

// AppError is the base error type for all application errors
type AppError struct {
	// Error code for programmatic handling
	Code string `json:"code"`

	// Human-readable message
	Message string `json:"message"`

	// HTTP status code
	HTTPStatus int `json:"-"`

	// Original error (for error wrapping)
	Cause error `json:"-"`

	// Metadata for additional context
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Timestamp when error occurred
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// NewError creates a new AppError
func NewError(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now().UTC(),
	}
}

// Error constructors

func ErrValidation(field, message string) *AppError {
	return NewError(ErrCodeValidation, message, http.StatusBadRequest).
		WithMetadata("field", field)
}

// ErrFetch reports a non-success HTTP status from a page fetch.
func ErrFetch(url string, status int, statusText string) *AppError {
	return NewError(ErrCodeFetch, fmt.Sprintf("fetch failed: %d %s", status, statusText), http.StatusBadGateway).
		WithMetadata("url", url).
		WithMetadata("status", status).
		WithMetadata("status_text", statusText)
}

// ErrTimeout reports a page fetch that exceeded its time bound.
func ErrTimeout(url string, err error) *AppError {
	return NewError(ErrCodeTimeout, fmt.Sprintf("fetch timed out: %s", url), http.StatusGatewayTimeout).
		WithMetadata("url", url).
		WithCause(err)
}

// ErrUpstream reports a non-success HTTP status from the model endpoint.
func ErrUpstream(status int, body string) *AppError {
	return NewError(ErrCodeUpstream, fmt.Sprintf("model endpoint returned status %d", status), http.StatusBadGateway).
		WithMetadata("http_status", status).
		WithMetadata("body", body)
}

// ErrMalformedReply reports a success response from the model endpoint
// that lacks the expected reply structure.
func ErrMalformedReply(detail string) *AppError {
	return NewError(ErrCodeMalformedReply, "model reply missing expected structure: "+detail, http.StatusBadGateway)
}

// ErrUnparsableReply reports model text containing no extractable JSON.
// The raw text is carried in metadata for debugging.
func ErrUnparsableReply(rawText string) *AppError {
	return NewError(ErrCodeUnparsableReply, "no parsable JSON found in model reply", http.StatusBadGateway).
		WithMetadata("raw_text", rawText)
}

func ErrExtractionFailed(err error) *AppError {
	return NewError(ErrCodeExtractionFailed, "form extraction failed", http.StatusUnprocessableEntity).
		WithCause(err)
}

func ErrInternal(message string) *AppError {
	if message == "" {
		message = "Internal server error"
	}
	return NewError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// Helper functions

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
func GetErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given application error code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
