// Package apperr defines the error taxonomy shared by the services and the
// HTTP boundary. Every domain failure carries a stable name and a
// human-readable message; the HTTP layer maps the kind to a status code and
// echoes the message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for status mapping at the boundary.
type Kind int

const (
	// KindUpstream covers document store and provider failures passed through verbatim.
	KindUpstream Kind = iota
	// KindNotFound indicates a required row is absent.
	KindNotFound
	// KindValidation indicates a caller-input problem.
	KindValidation
	// KindUnauthorized indicates missing or invalid credentials.
	KindUnauthorized
	// KindPermission indicates a failed authorization check.
	KindPermission
)

// Error is a typed domain failure with a stable name.
type Error struct {
	Kind    Kind
	Name    string
	Message string
}

func (e *Error) Error() string {
	return e.Name + ": " + e.Message
}

// NotFound builds a KindNotFound error.
func NotFound(name, message string) *Error {
	return &Error{Kind: KindNotFound, Name: name, Message: message}
}

// Validation builds a KindValidation error.
func Validation(name, message string) *Error {
	return &Error{Kind: KindValidation, Name: name, Message: message}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Name: "Unauthorized", Message: message}
}

// PermissionDenied builds a KindPermission error.
func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermission, Name: "PermissionDenied", Message: message}
}

// IsName reports whether err is an *Error with the given name.
func IsName(err error, name string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Name == name
	}
	return false
}

// StatusFor maps an error to an HTTP status code. Untyped errors are treated
// as upstream failures.
func StatusFor(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor extracts the user-visible message for an error. Upstream errors
// are not interpreted further.
func MessageFor(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
