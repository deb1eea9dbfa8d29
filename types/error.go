package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Behavior tree error codes
const (
	ErrInvalidNodeConfig ErrorCode = "INVALID_NODE_CONFIG"
	ErrMissingChild      ErrorCode = "MISSING_CHILD"
	ErrTreeNoRoot        ErrorCode = "TREE_NO_ROOT"
)

// State machine error codes
const (
	ErrStateNotFound        ErrorCode = "STATE_NOT_FOUND"
	ErrStateExists          ErrorCode = "STATE_EXISTS"
	ErrNoInitialState       ErrorCode = "NO_INITIAL_STATE"
	ErrInitialStateSet      ErrorCode = "INITIAL_STATE_SET"
	ErrInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrConcurrentTransition ErrorCode = "CONCURRENT_TRANSITION"
	ErrInvalidAddress       ErrorCode = "INVALID_ADDRESS"
	ErrRegionNotFound       ErrorCode = "REGION_NOT_FOUND"
	ErrRegionExists         ErrorCode = "REGION_EXISTS"
)

// Registry error codes
const (
	ErrAgentExists   ErrorCode = "AGENT_EXISTS"
	ErrAgentNotFound ErrorCode = "AGENT_NOT_FOUND"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether any error in err's tree is a framework Error
// carrying the given code. Unlike errors.As, it keeps searching joined
// branches past the first framework Error it finds.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return HasCode(x.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, sub := range x.Unwrap() {
			if HasCode(sub, code) {
				return true
			}
		}
	}
	return false
}
