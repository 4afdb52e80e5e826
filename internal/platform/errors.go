package platform

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of an automation failure.
type ErrorCode string

const (
	CodeElementNotFound      ErrorCode = "ELEMENT_NOT_FOUND"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodePermissionDenied     ErrorCode = "PERMISSION_DENIED"
	CodePlatformError        ErrorCode = "PLATFORM_ERROR"
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	CodeUnsupportedPlatform  ErrorCode = "UNSUPPORTED_PLATFORM"
	CodeInvalidArgument      ErrorCode = "INVALID_ARGUMENT"
	CodeInternal             ErrorCode = "INTERNAL"
	CodeInvalidSelector      ErrorCode = "INVALID_SELECTOR"
	CodeElementDetached      ErrorCode = "ELEMENT_DETACHED"
	CodeElementNotVisible    ErrorCode = "ELEMENT_NOT_VISIBLE"
	CodeElementNotEnabled    ErrorCode = "ELEMENT_NOT_ENABLED"
	CodeElementNotStable     ErrorCode = "ELEMENT_NOT_STABLE"
	CodeElementObscured      ErrorCode = "ELEMENT_OBSCURED"
	CodeScrollFailed         ErrorCode = "SCROLL_FAILED"
)

// Error is the single error type surfaced by backends, the resolver and the
// action layer. PlatformCode and Operation are only set for PLATFORM_ERROR.
type Error struct {
	Code         ErrorCode `json:"code"`
	Message      string    `json:"message"`
	PlatformCode string    `json:"platform_code,omitempty"`
	Operation    string    `json:"operation,omitempty"`
	Retryable    bool      `json:"retryable"`
	Cause        error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Operation, e.Message)
	}
	if e.PlatformCode != "" {
		msg += fmt.Sprintf(" (code %s)", e.PlatformCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewPlatformError creates a PLATFORM_ERROR for a failed OS call.
func NewPlatformError(operation, message string) *Error {
	return &Error{Code: CodePlatformError, Operation: operation, Message: message}
}

// Unsupported creates an UNSUPPORTED_OPERATION error naming the missing feature.
func Unsupported(feature string) *Error {
	return &Error{Code: CodeUnsupportedOperation, Message: feature + " is not supported by this backend"}
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

// WithOperation records the name of the operation that failed.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithPlatformCode records the raw OS error code.
func (e *Error) WithPlatformCode(code string) *Error {
	e.PlatformCode = code
	return e
}

// IsRetryable reports whether err is a retryable platform error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable && e.Code == CodePlatformError
	}
	return false
}

// CodeOf extracts the error code from err, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
