// Package errs defines the application error type used by every handler.
//
// An AppError is "operational": it describes a condition we expect (bad
// input, missing document, expired token) and its message is safe to show to
// clients. Any other error reaching the error handler is treated as a bug.
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// AppError is an expected, user-facing error.
type AppError struct {
	StatusCode    int    `json:"statusCode"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	IsOperational bool   `json:"isOperational"`

	cause error
}

// New builds an operational error. Status is "fail" for 4xx codes and
// "error" for everything else.
func New(message string, statusCode int) *AppError {
	return &AppError{
		StatusCode:    statusCode,
		Status:        StatusFor(statusCode),
		Message:       message,
		IsOperational: true,
	}
}

// Wrap is New with the underlying cause kept for logging.
func Wrap(cause error, message string, statusCode int) *AppError {
	e := New(message, statusCode)
	e.cause = cause
	return e
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// StatusFor returns the envelope status string for an HTTP code.
func StatusFor(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

func BadRequest(message string) *AppError {
	return New(message, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(message, http.StatusForbidden)
}

func NotFound(message string) *AppError {
	return New(message, http.StatusNotFound)
}

// ErrNoDocument is returned by the generic store when an id does not resolve.
var ErrNoDocument = NotFound("No document found with that ID")

// InvalidID reports a path id that cannot identify a document.
func InvalidID(field, value string) *AppError {
	return BadRequest(fmt.Sprintf("Invalid %s: %s.", field, value))
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects field errors for one document.
type ValidationError struct {
	Fields []FieldError
}

func (v *ValidationError) Add(field, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message})
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Err returns nil when no field failed, so callers can `return v.Err()`.
func (v *ValidationError) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, f.Message)
	}
	return "Invalid input data. " + strings.Join(msgs, ". ")
}

// Internal wraps an unexpected error with a stack trace.
func Internal(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
