// Package domainerrors defines the coded error taxonomy shared by services
// and transports. Stores return infrastructure sentinels (pkg/platform/sentinel);
// services translate them into coded errors; transports map codes to HTTP
// statuses or kick messages without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. User-facing codes carry messages that
// are safe to show to the player; internal codes are logged and masked.
type Code string

const (
	// User-facing.
	CodeInvalidCode     Code = "invalid_code"
	CodeAlreadyBound    Code = "already_bound"
	CodeUntrustedOrigin Code = "untrusted_origin"
	CodeApprovalTimeout Code = "approval_timeout"
	CodeApprovalDenied  Code = "approval_denied"
	CodeBanned          Code = "banned"
	CodeMuted           Code = "muted"
	CodeAccessExpired   Code = "access_expired"

	// Generic.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal"
)

// Error is the concrete coded error. Wrapped causes stay reachable through
// errors.Is / errors.As.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two coded errors by code so callers can compare against a
// prototype without caring about messages.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New builds a coded error with a user-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the HTTP transport should write.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidCode, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAlreadyBound, CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBanned, CodeMuted, CodeUntrustedOrigin, CodeApprovalDenied, CodeAccessExpired:
		return http.StatusForbidden
	case CodeApprovalTimeout, CodeTimeout:
		return http.StatusRequestTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
