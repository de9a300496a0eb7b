// Package domainerrors provides coded errors shared between services and the
// HTTP layer. Services attach a Code describing the domain outcome; the
// transport layer maps codes to HTTP statuses without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// Transport-level codes.
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// Credential subsystem codes.
	CodeUnknownOrInactive Code = "unknown_or_inactive"
	CodeLockedOut         Code = "locked_out"
	CodeInvalidCode       Code = "invalid_code"
	CodeCryptoFailure     Code = "crypto_failure"
	CodeIssuanceFailure   Code = "issuance_failure"
	CodeInvalidAlert      Code = "invalid_alert"
	CodeStoreUnavailable  Code = "store_unavailable"

	// CodeInvariantViolation marks a broken domain invariant caught at a
	// constructor or trust boundary.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded domain error. It wraps an optional cause so errors.Is and
// errors.As keep working through service layers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability in handlers.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to an HTTP status. Authentication outcomes
// deliberately collapse to 401 so callers cannot distinguish an unknown public
// number from a wrong code.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidAlert:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeUnknownOrInactive, CodeInvalidCode:
		return http.StatusUnauthorized
	case CodeLockedOut:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case CodeCryptoFailure, CodeIssuanceFailure, CodeInternal, CodeInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
