// Package rterrors provides the structured error taxonomy shared across the
// tag-graph build engine.
//
// Every fallible operation in this module returns (or wraps) an *Error
// carrying a machine-readable Code. Three codes are not fatal —
// LockObserved and MissingSource (informational) and CycleDetected
// (diagnostic) — callers check IsFatal before deciding whether to abort a
// run.
package rterrors

import (
	"errors"
	"fmt"
)

// Code identifies the category of an Error.
type Code string

const (
	// BadMetadata marks malformed or incomplete cargo metadata JSON.
	BadMetadata Code = "BAD_METADATA"
	// ToolSpawn marks a failure to execute the external tag tool.
	ToolSpawn Code = "TOOL_SPAWN"
	// ToolFailed marks a non-zero exit from the external tag tool.
	ToolFailed Code = "TOOL_FAILED"
	// ToolSilent marks a non-zero exit with no stderr or stdout output, or a
	// run that left no tags output (a missing or empty output file).
	ToolSilent Code = "TOOL_SILENT"
	// IoFailed marks a filesystem operation failure.
	IoFailed Code = "IO_FAILED"
	// ConfigInvalid marks an invalid configuration value.
	ConfigInvalid Code = "CONFIG_INVALID"
	// LockObserved is informational: a source was skipped because its lock
	// file already existed. Never aborts a run.
	LockObserved Code = "LOCK_OBSERVED"
	// MissingSource is informational: a dependency's tag file was absent at
	// merge time and was skipped with a warning. Never aborts a run.
	MissingSource Code = "MISSING_SOURCE"
	// CycleDetected is diagnostic only; cycles are tolerated, never fatal.
	CycleDetected Code = "CYCLE_DETECTED"
)

// Error is a structured error with a code, message, and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an existing cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err should abort the run. LockObserved,
// MissingSource and CycleDetected are never fatal; everything else is.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case LockObserved, MissingSource, CycleDetected:
		return false
	default:
		return true
	}
}
