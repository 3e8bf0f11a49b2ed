package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Root validation errors
	ErrRootNotFound ErrorCode = "ROOT_NOT_FOUND"
	ErrRootNotDir   ErrorCode = "ROOT_NOT_DIR"
	ErrDestCreate   ErrorCode = "DEST_CREATE"

	// Enumeration errors
	ErrAccess ErrorCode = "ACCESS"

	// Copy errors
	ErrSourceUnreadable ErrorCode = "SOURCE_UNREADABLE"
	ErrDestUnwritable   ErrorCode = "DEST_UNWRITABLE"
	ErrOutOfSpace       ErrorCode = "OUT_OF_SPACE"
	ErrInterruptedCopy  ErrorCode = "INTERRUPTED_COPY"

	// Coordinator errors
	ErrCancelled ErrorCode = "CANCELLED"
)

// MergeError represents a structured error with code and details
type MergeError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *MergeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *MergeError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *MergeError) Is(target error) bool {
	var targetErr *MergeError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new MergeError with the given code and message
func New(code ErrorCode, message string) *MergeError {
	return &MergeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new MergeError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *MergeError {
	return &MergeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a MergeError
func Wrap(err error, code ErrorCode, message string) *MergeError {
	if err == nil {
		return nil
	}
	return &MergeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *MergeError {
	if err == nil {
		return nil
	}
	return &MergeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *MergeError) WithDetail(key string, value interface{}) *MergeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the error code from err, or ErrUnknown when err is
// not a MergeError.
func CodeOf(err error) ErrorCode {
	var merr *MergeError
	if errors.As(err, &merr) {
		return merr.Code
	}
	return ErrUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
