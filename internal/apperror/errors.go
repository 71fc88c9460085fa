// Package apperror defines the error taxonomy shared by all handlers. Each
// error carries an HTTP status code, a machine-readable reason, and a message
// safe to return to the client. Raw infrastructure errors are never exposed;
// they ride along in Internal for logging only.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the base type for all domain errors.
type Error struct {
	// Code is the HTTP status code the transport layer should use.
	Code int `json:"-"`

	// Reason is a stable machine-distinguishable classifier, e.g. "weak_password".
	Reason string `json:"reason"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never sent to clients.
	Internal error `json:"-"`
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Validation reports malformed or missing input (400).
func Validation(message string) *Error {
	return &Error{Code: http.StatusBadRequest, Reason: "validation", Message: message}
}

// Policy reports a business-rule rejection such as a weak or reused password (400).
func Policy(reason, message string) *Error {
	return &Error{Code: http.StatusBadRequest, Reason: reason, Message: message}
}

// Authentication reports bad credentials or OTPs. The default status is 400
// to match the API contract; WithCode can raise it to 401 where required.
func Authentication(message string) *Error {
	return &Error{Code: http.StatusBadRequest, Reason: "authentication", Message: message}
}

// Authorization reports an action the caller is not allowed to perform (403).
func Authorization(message string) *Error {
	return &Error{Code: http.StatusForbidden, Reason: "authorization", Message: message}
}

// NotFound reports a missing entity (404).
func NotFound(message string) *Error {
	return &Error{Code: http.StatusNotFound, Reason: "not_found", Message: message}
}

// Conflict reports a uniqueness or concurrency clash (409).
func Conflict(message string) *Error {
	return &Error{Code: http.StatusConflict, Reason: "conflict", Message: message}
}

// Delivery reports an outbound email transport failure (500).
func Delivery(err error) *Error {
	return &Error{
		Code:     http.StatusInternalServerError,
		Reason:   "delivery",
		Message:  "Failed to send email. Please try again.",
		Internal: err,
	}
}

// Internal wraps an unexpected failure (500). The client only sees a generic message.
func Internal(err error) *Error {
	return &Error{
		Code:     http.StatusInternalServerError,
		Reason:   "internal",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// WithCode returns a copy of the error with an overridden status code.
func (e *Error) WithCode(code int) *Error {
	clone := *e
	clone.Code = code
	return &clone
}

// From extracts an *Error from err, wrapping unknown errors as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
