// Package errors provides the unified error type for the minotaur daemon.
// Errors carry a machine-readable code, retryable classification, an optional
// detail map, and a wrapped cause.
package errors

import (
	"errors"
	"fmt"
)

// Error is the unified application error type.
type Error struct {
	// Code is a machine-readable error code.
	Code Code `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with automatic retryable detection.
func New(code Code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// CodeOf extracts the Code from err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether err (or any error it wraps) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// --- Common constructors ---

// SettingsFrozen creates an Error for a mutation on a frozen settings store.
func SettingsFrozen() *Error {
	return New(CodeSettingsFrozen, "settings store is frozen")
}

// KeyNotFound creates an Error for a missing settings key.
func KeyNotFound(key string) *Error {
	return New(CodeKeyNotFound, fmt.Sprintf("setting %q does not exist", key)).
		WithDetail("key", key)
}

// UnknownPriority creates an Error for an unregistered priority name.
func UnknownPriority(priority string) *Error {
	return New(CodeUnknownPriority, fmt.Sprintf("setting priority %q is not registered", priority)).
		WithDetail("priority", priority)
}

// InvalidConfig creates an Error for configuration that failed validation.
func InvalidConfig(section string, cause error) *Error {
	return New(CodeInvalidConfig, fmt.Sprintf("invalid %s configuration", section)).
		WithDetail("section", section).
		WithCause(cause)
}

// ReaderFailed creates an Error for a reader that could not produce a batch.
func ReaderFailed(name string, cause error) *Error {
	return New(CodeReaderFailed, fmt.Sprintf("reader %s failed", name)).
		WithDetail("reader", name).
		WithCause(cause)
}

// PipelineFailed creates an Error for a pipeline that could not process a batch.
func PipelineFailed(name string, cause error) *Error {
	return New(CodePipelineFailed, fmt.Sprintf("pipeline %s failed", name)).
		WithDetail("pipeline", name).
		WithCause(cause)
}

// ConnectionFailed creates an Error for a failed connection to a service.
func ConnectionFailed(service string, cause error) *Error {
	return New(CodeConnectionFailed, fmt.Sprintf("unable to connect to %s", service)).
		WithDetail("service", service).
		WithCause(cause)
}

// Timeout creates an Error for an operation that exceeded its deadline.
func Timeout(operation string) *Error {
	return New(CodeTimeout, fmt.Sprintf("operation %s timed out", operation)).
		WithDetail("operation", operation)
}

// SchedulerStopped creates an Error for an operation on a stopped scheduler.
func SchedulerStopped(operation string) *Error {
	return New(CodeSchedulerStopped, fmt.Sprintf("scheduler is stopped, cannot %s", operation)).
		WithDetail("operation", operation)
}

// Internal creates an Error for an unexpected internal failure.
func Internal(cause error) *Error {
	return New(CodeInternal, "an unexpected error occurred").WithCause(cause)
}
