// Package errors provides structured error types for figura.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - NETWORK_ERROR, TIMEOUT: remote collaborator failures
//   - ABORTED: the caller cancelled the request (not a failure)
//   - INTERNAL_ERROR: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidKind, "unknown parser kind: %s", kind)
//	if errors.Is(err, errors.ErrCodeInvalidKind) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to sync draft to %s", url)
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
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidKind    Code = "INVALID_KIND"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidTone    Code = "INVALID_TONE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidPayload Code = "INVALID_PAYLOAD"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeToolNotFound Code = "TOOL_NOT_FOUND"
	ErrCodeNodeNotFound Code = "NODE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Cancellation
	ErrCodeAborted Code = "ABORTED"

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

// Error implements the error interface.
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the HTTP status the API answers with.
// Aborted requests map to 499 (client closed request).
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidKind, ErrCodeInvalidFormat,
		ErrCodeInvalidTone, ErrCodeInvalidConfig, ErrCodeInvalidPayload, ErrCodeInvalidPath:
		return 400
	case ErrCodeNotFound, ErrCodeToolNotFound, ErrCodeNodeNotFound:
		return 404
	case ErrCodeAborted:
		return 499
	case ErrCodeTimeout:
		return 504
	case ErrCodeNetwork:
		return 502
	case ErrCodeUnsupported:
		return 501
	default:
		return 500
	}
}

// ErrAborted marks work the caller cancelled. It is not a failure: callers
// test for it with errors.Is and stay quiet.
var ErrAborted = errors.New("aborted")

// Is lets errors.Is match ErrAborted against any ABORTED error.
func (e *Error) Is(target error) bool {
	return target == ErrAborted && e.Code == ErrCodeAborted
}

// Aborted wraps a context error as an ABORTED error. The result matches
// both ErrAborted and the original cause (context.Canceled or
// context.DeadlineExceeded). A nil cause yields nil.
func Aborted(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return Wrap(ErrCodeAborted, cause, format, args...)
}

// IsAborted reports whether err is an abort.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
