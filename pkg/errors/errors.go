// Package errors defines the structured error types used across the
// threatsmith service. Every error carries a stable machine-readable code,
// an HTTP status for the transport layer, and optional metadata for
// diagnostics.
package errors

import (
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// CodeValidation indicates malformed or missing caller input.
	CodeValidation Code = "validation_error"
	// CodeNotFound indicates the referenced resource does not exist.
	CodeNotFound Code = "not_found"
	// CodeSourceUnavailable indicates a merge source model was absent or
	// unreadable. It is recorded in metrics rather than surfaced as a
	// failure.
	CodeSourceUnavailable Code = "source_unavailable"
	// CodeBackend indicates a relational backend failure. The enclosing
	// transaction has been rolled back.
	CodeBackend Code = "backend_error"
	// CodePartialPersistence indicates a document-store write failed after
	// earlier document mutations in the same merge. Those earlier writes
	// are not rolled back.
	CodePartialPersistence Code = "partial_persistence"
	// CodeConflict indicates a concurrent writer modified the document
	// between this operation's read and write.
	CodeConflict Code = "conflict"
	// CodeInternal indicates an unexpected server-side failure.
	CodeInternal Code = "internal_error"
)

// AppError is the structured error type returned by repositories, stores,
// and services.
type AppError struct {
	code       Code
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

// New creates an AppError with the given code, HTTP status, and message.
func New(code Code, httpStatus int, message string) *AppError {
	return &AppError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the machine-readable error code.
func (e *AppError) Code() Code {
	return e.code
}

// HTTPStatus returns the HTTP status the transport layer should respond with.
func (e *AppError) HTTPStatus() int {
	return e.httpStatus
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithMetadata attaches a diagnostic key/value pair.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all attached metadata.
func (e *AppError) Metadata() map[string]interface{} {
	return e.metadata
}

// ErrValidation creates a validation error. Nothing has been persisted when
// this is returned.
func ErrValidation(message string) *AppError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// ErrModelNotFound creates a not-found error for a threat model.
func ErrModelNotFound(modelID string) *AppError {
	return New(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("threat model not found: %s", modelID)).
		WithMetadata("model_id", modelID)
}

// ErrNotFound creates a generic not-found error.
func ErrNotFound(resource, id string) *AppError {
	return New(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("%s not found: %s", resource, id)).
		WithMetadata("id", id)
}

// ErrSourceUnavailable creates a non-fatal error for a missing merge source.
func ErrSourceUnavailable(modelID string) *AppError {
	return New(CodeSourceUnavailable, http.StatusNotFound,
		fmt.Sprintf("source model unavailable: %s", modelID)).
		WithMetadata("model_id", modelID)
}

// ErrBackend wraps a relational backend failure.
func ErrBackend(message string, cause error) *AppError {
	return New(CodeBackend, http.StatusInternalServerError, message).WithCause(cause)
}

// ErrPartialPersistence wraps a document-store write failure that leaves the
// primary document partially mutated.
func ErrPartialPersistence(modelID string, cause error) *AppError {
	return New(CodePartialPersistence, http.StatusInternalServerError,
		fmt.Sprintf("document write failed mid-merge, document %s may be partially updated", modelID)).
		WithCause(cause).
		WithMetadata("model_id", modelID)
}

// ErrConflict creates a concurrent-modification error for a document.
func ErrConflict(modelID string) *AppError {
	return New(CodeConflict, http.StatusConflict,
		fmt.Sprintf("document %s was modified concurrently", modelID)).
		WithMetadata("model_id", modelID)
}

// ErrInternal wraps an unexpected failure.
func ErrInternal(message string, cause error) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, message).WithCause(cause)
}

// AsAppError attempts to cast an error to *AppError.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code Code) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.code == code
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// ErrorResponse is the JSON body the HTTP layer renders for failures.
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error to an ErrorResponse, mapping unknown
// error types to a generic internal error.
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return &ErrorResponse{
			Error:            string(appErr.code),
			ErrorDescription: appErr.Error(),
			Metadata:         appErr.metadata,
		}
	}
	return &ErrorResponse{
		Error:            string(CodeInternal),
		ErrorDescription: "an unexpected error occurred",
	}
}

// HTTPStatusOf returns the HTTP status for an error, defaulting to 500 for
// non-AppError values.
func HTTPStatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.httpStatus
	}
	return http.StatusInternalServerError
}
