package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Wrapf creates a new error with the same code and a formatted cause.
func Wrapf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Snapshot errors
	ErrDataUnavailable = &Error{Code: "DATA_UNAVAILABLE", Message: "snapshot data unavailable"}

	// Order errors
	ErrOrderRejected     = &Error{Code: "ORDER_REJECTED", Message: "order rejected"}
	ErrInsufficientFunds = &Error{Code: "INSUFFICIENT_FUNDS", Message: "insufficient funds"}
	ErrInvalidQuantity   = &Error{Code: "INVALID_QUANTITY", Message: "invalid order quantity"}

	// Dispatch errors
	ErrUnknownCondition = &Error{Code: "UNKNOWN_CONDITION", Message: "unknown condition name"}
	ErrUnknownStrategy  = &Error{Code: "UNKNOWN_STRATEGY", Message: "unknown strategy name"}
)
