// Package errors provides structured error types for modcat.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the catalog, sources and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Error codes follow a loose naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - NETWORK_*: Network-related errors
//   - MANIFEST_*, DUPLICATE_*, DEPENDENCY_*: catalog load and resolution failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid module id: %s", id)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
//
// # Typed Errors
//
// Catalog failures that callers need to inspect carry their own types
// ([ManifestFetchError], [DuplicateModuleError], [DependencyUnresolvedError]).
// They expose a Code method, so [Is] and [GetCode] classify them the same
// way as *Error values:
//
//	var dup *errors.DuplicateModuleError
//	if stderrors.As(err, &dup) {
//	    log.Printf("duplicate %s@%s", dup.ID, dup.Version)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidModuleID Code = "INVALID_MODULE_ID"
	ErrCodeInvalidVersion  Code = "INVALID_VERSION"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeModuleNotFound Code = "MODULE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Catalog errors
	ErrCodeManifestFetch        Code = "MANIFEST_FETCH"
	ErrCodeInstalledSource      Code = "INSTALLED_SOURCE"
	ErrCodeDuplicateModule      Code = "DUPLICATE_MODULE"
	ErrCodeDependencyUnresolved Code = "DEPENDENCY_UNRESOLVED"

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

// coder is implemented by the typed errors in this package.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// The outermost coded error in the chain decides.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no coded error is found in the chain.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				if c := GetCode(inner); c != "" {
					return c
				}
			}
			return ""
		}
		err = errors.Unwrap(err)
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

// ManifestFetchError reports that the remote manifest feed could not be
// reached or decoded.
type ManifestFetchError struct {
	Location string // Feed location that was requested
	Cause    error
}

// Error implements the error interface.
func (e *ManifestFetchError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("fetch manifest feed %s", e.Location)
	}
	return fmt.Sprintf("fetch manifest feed %s: %v", e.Location, e.Cause)
}

// Unwrap returns the transport or decoding error.
func (e *ManifestFetchError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *ManifestFetchError) Code() Code { return ErrCodeManifestFetch }

// DuplicateModuleError reports two records sharing the same (id, version).
type DuplicateModuleError struct {
	ID      string
	Version string
}

// Error implements the error interface.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("duplicate module %s@%s", e.ID, e.Version)
}

// Code returns the error code for this error type.
func (e *DuplicateModuleError) Code() Code { return ErrCodeDuplicateModule }

// DependencyUnresolvedError reports a dependency for which no catalog
// record satisfies the required range. It is informational: resolution
// continues without the dependency.
type DependencyUnresolvedError struct {
	Root         string   // id@version of the module being resolved
	DependencyID string   // Dependency that could not be satisfied
	Ranges       []string // Ranges the candidates were checked against
	Available    []string // Versions present in the catalog for DependencyID
}

// Error implements the error interface.
func (e *DependencyUnresolvedError) Error() string {
	ranges := strings.Join(e.Ranges, ", ")
	if len(e.Available) == 0 {
		return fmt.Sprintf("%s: dependency %s (%s) not found in catalog", e.Root, e.DependencyID, ranges)
	}
	return fmt.Sprintf("%s: no version of %s satisfies %s (available: %s)",
		e.Root, e.DependencyID, ranges, strings.Join(e.Available, ", "))
}

// Code returns the error code for this error type.
func (e *DependencyUnresolvedError) Code() Code { return ErrCodeDependencyUnresolved }
