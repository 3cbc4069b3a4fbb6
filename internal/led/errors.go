package led

import (
	"errors"
	"fmt"
)

// Error is a domain error returned by the bank and the controller.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeInvalidPattern   = "INVALID_PATTERN"
	ErrCodeIndexOutOfRange  = "INDEX_OUT_OF_RANGE"
	ErrCodeEmptyBank        = "EMPTY_BANK"
	ErrCodeDeviceFault      = "DEVICE_FAULT"
	ErrCodeUnsupportedBoard = "UNSUPPORTED_BOARD"
)

var (
	// ErrUnknownPattern is the cause of every INVALID_PATTERN error.
	ErrUnknownPattern = errors.New("unknown pattern")
	// ErrIndexOutOfRange is the cause of every INDEX_OUT_OF_RANGE error.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyBank is returned when an animation is requested on a bank with no outputs.
	ErrEmptyBank = errors.New("bank has no outputs")
)

// NewError creates a new domain error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsValidation reports whether err was caused by bad caller input.
// Validation errors are always returned before any output is touched.
func IsValidation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrCodeInvalidPattern, ErrCodeIndexOutOfRange, ErrCodeEmptyBank:
		return true
	default:
		return false
	}
}
