// Package errors provides structured error types for svgit.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for mapping to HTTP status codes
//   - User-friendly error messages kept apart from raw tool diagnostics
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into three groups:
//   - Upload validation failures (MISSING_FILE, FILE_TOO_LARGE, ...)
//   - External tool failures (PREPROCESS_FAILED, TRACE_FAILED, TOOL_TIMEOUT)
//   - Local failures (IO_ERROR, INTERNAL_ERROR)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnsupportedType, "unsupported file type: %s", mime)
//	if errors.Is(err, errors.ErrCodeUnsupportedType) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors and attach tool output
//	err := errors.Wrap(errors.ErrCodeTraceFailed, origErr, "VTracer failed").
//	    WithDetails(stderr)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Upload validation errors
	ErrCodeMissingFile     Code = "MISSING_FILE"
	ErrCodeFileTooLarge    Code = "FILE_TOO_LARGE"
	ErrCodeUnsupportedType Code = "UNSUPPORTED_TYPE"
	ErrCodeEmptyOrCorrupt  Code = "EMPTY_OR_CORRUPT"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"

	// External tool errors
	ErrCodePreprocessFailed Code = "PREPROCESS_FAILED"
	ErrCodeTraceFailed      Code = "TRACE_FAILED"
	ErrCodeTimeout          Code = "TOOL_TIMEOUT"
	ErrCodeToolNotFound     Code = "TOOL_NOT_FOUND"

	// Local errors
	ErrCodeIO       Code = "IO_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Details string // Raw diagnostic text (tool stderr etc.), may be empty
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

// WithDetails attaches diagnostic text and returns e.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
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

// Details returns the diagnostic text attached to err, or "" if none.
func Details(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return ""
}

// IsValidation reports whether err is an upload or settings validation failure.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeMissingFile, ErrCodeFileTooLarge, ErrCodeUnsupportedType,
		ErrCodeEmptyOrCorrupt, ErrCodeInvalidInput:
		return true
	}
	return false
}
