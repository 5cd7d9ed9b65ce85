// Package apperr classifies failures so a single HTTP boundary can turn them into
// stable error envelopes. Domain packages declare their sentinels with New and
// return them (optionally wrapped with a cause); nothing outside the boundary
// decides status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure category. The zero value is KindInternal so that an
// unclassified Error never maps to a client-side status by accident.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindAuthentication
	KindAuthorization
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its externally observable status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicate:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Stable codes shared across packages. Domain-specific codes live next to
// their sentinels.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInternal               = "INTERNAL_ERROR"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeAccessDenied           = "ACCESS_DENIED"
)

// Error is a classified failure. Message is safe to show to clients; Cause is
// for server-side logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Cause   error
}

// New declares a classified error. Values returned by New are treated as
// immutable sentinels; use WithCause to derive copies.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code, so wrapped copies still
// satisfy errors.Is against their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	out := *e
	out.Cause = cause
	return &out
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Validation builds a 400 VALIDATION_ERROR.
func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Details: details}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "An unexpected error occurred", Cause: cause}
}

var (
	ErrAuthenticationRequired = New(KindAuthentication, CodeAuthenticationRequired, "Authentication required")
	ErrAccessDenied           = New(KindAuthorization, CodeAccessDenied, "Access denied")
)
