// Package errors defines stable error codes for dkb failure modes,
// with suggested fixes surfaced to the CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NoSourcesAvailable indicates every retrieval source was unavailable or failed
	NoSourcesAvailable ErrorCode = "NO_SOURCES_AVAILABLE"
	// SourceUnavailable indicates a single retrieval source is not usable
	SourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// SourceFailed indicates a retrieval source returned an error for a query
	SourceFailed ErrorCode = "SOURCE_FAILED"
	// QuerySetInvalid indicates an evaluation query-set file is missing or malformed
	QuerySetInvalid ErrorCode = "QUERYSET_INVALID"
	// StorageError indicates a knowledge database failure
	StorageError ErrorCode = "STORAGE_ERROR"
	// Timeout indicates a source query timed out
	Timeout ErrorCode = "TIMEOUT"
	// NotInitialized indicates no .dkb directory/database exists yet
	NotInitialized ErrorCode = "NOT_INITIALIZED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// Error is a dkb error with a stable code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes[code],
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// suggestedFixes maps error codes to suggested fix actions
var suggestedFixes = map[ErrorCode][]FixAction{
	NoSourcesAvailable: {
		{
			Command:     "dkb status",
			Description: "Check which retrieval sources are available",
		},
		{
			Command:     "dkb init",
			Description: "Initialize the knowledge database",
		},
	},
	NotInitialized: {
		{
			Command:     "dkb init",
			Description: "Create .dkb/ and the knowledge database schema",
		},
	},
	QuerySetInvalid: {
		{
			Command:     "dkb queryset generate --limit 50",
			Description: "Generate a query set from git history",
		},
	},
}

// CodeOf extracts the ErrorCode from err, or InternalError if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
