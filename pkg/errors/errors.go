// Package errors provides structured error types for pingraph.
//
// Errors carry a machine-readable [Code] so the CLI and the HTTP server can
// react to a failure without string matching:
//   - INVALID_*: malformed input, snapshots or identifiers
//   - UNKNOWN_TYPE: a snapshot names a node or pin type nobody registered
//   - NOT_FOUND, CONFLICT: store lookups and id collisions
//   - NETWORK_ERROR, TIMEOUT: sync transports and remote stores
//   - UNSUPPORTED, INTERNAL_ERROR: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidID, "graph id %q is too long", id)
//	if errors.Is(err, errors.ErrCodeInvalidID) {
//	    // reject the request
//	}
//
//	err = errors.Wrap(errors.ErrCodeInvalidFormat, cause, "decode %s snapshot", "yaml")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidID     Code = "INVALID_ID"
	ErrCodeInvalidType   Code = "INVALID_TYPE"
	ErrCodeUnknownType   Code = "UNKNOWN_TYPE"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeConflict Code = "CONFLICT"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// CodeOf returns the code of err, falling back to the code of the first
// sentinel in table that err matches, and to fallback when nothing does.
// Packages that expose plain sentinel errors use it to map them onto codes
// at API boundaries.
func CodeOf(err error, table map[error]Code, fallback Code) Code {
	if c := GetCode(err); c != "" {
		return c
	}
	for sentinel, c := range table {
		if errors.Is(err, sentinel) {
			return c
		}
	}
	return fallback
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
