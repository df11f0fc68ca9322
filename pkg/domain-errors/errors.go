// Package domainerrors provides coded errors for the passport registry.
//
// Services return these so transport layers can translate failures into
// protocol responses without string matching. Stores return plain errors
// (or sentinel values) and services wrap them with a code at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure. Every precondition violation in the core maps
// onto exactly one code so callers can branch without parsing messages.
type Code string

const (
	// CodeUnauthorized: the acting principal lacks the role the operation
	// requires (not authority, not an authorized verifier, not the owner).
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound: the referenced record does not exist.
	CodeNotFound Code = "not_found"
	// CodeOutOfRange: a request index is beyond the record's request list.
	CodeOutOfRange Code = "out_of_range"
	// CodeInvalidInput: malformed parameters (empty owner, zero check flags,
	// validity years outside bounds, unknown predicate kind).
	CodeInvalidInput Code = "invalid_input"
	// CodeInvalidState: the entity exists but is in the wrong state for the
	// operation (record inactive or expired, request already processed).
	CodeInvalidState Code = "invalid_state"
	// CodeConflict: the operation would violate a uniqueness invariant,
	// e.g. a second active record for the same owner.
	CodeConflict Code = "conflict"
	// CodeBadRequest: the transport request itself could not be interpreted.
	CodeBadRequest Code = "bad_request"
	// CodeInternal: unexpected failure; not caller-correctable.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a coded error around an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a convenience alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the HTTP status the transport layer emits.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound, CodeOutOfRange:
		return http.StatusNotFound
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidState:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
