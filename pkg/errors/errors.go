// Package errors provides structured error types for stackpack.
//
// Every failure that can abort a composition run carries a machine-readable
// [Code] so the CLI can report it consistently and tests can assert on the
// category rather than on message text.
//
// # Error Codes
//
//   - INVALID_*: malformed build options or manifests
//   - FILE_NOT_FOUND: a required file (entry point, template) is missing
//   - MISSING_PREREQUISITE: a feature pack's mandatory host dependency is absent
//   - PROVISION_FAILED: the package manager could not install a build tool
//   - INTERNAL_ERROR: unexpected failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingPrerequisite, "style pack requires %s", "sass")
//	if errors.Is(err, errors.ErrCodeMissingPrerequisite) {
//	    // abort before anything is installed
//	}
//
//	err := errors.Wrap(errors.ErrCodeProvisionFailed, runErr, "install %s@%s", name, version)
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
	ErrCodeInvalidOptions  Code = "INVALID_OPTIONS"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Composition errors
	ErrCodeMissingPrerequisite Code = "MISSING_PREREQUISITE"
	ErrCodeProvisionFailed     Code = "PROVISION_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// ProvisionError describes a failed package-manager invocation. It is always
// returned wrapped in an *Error with [ErrCodeProvisionFailed].
type ProvisionError struct {
	Package string // install root, e.g. "@scope/name"
	Version string // requested version or range
	Command string // shell-quoted command line
	Output  string // combined stdout/stderr of the command
	Err     error  // exit error
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// Unwrap returns the exit error.
func (e *ProvisionError) Unwrap() error { return e.Err }
