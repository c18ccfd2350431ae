package plinstall

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error category; every code maps to one exit status.
type ErrorCode string

const (
	ErrUnknown         ErrorCode = "UNKNOWN"
	ErrBadSwitch       ErrorCode = "BAD_SWITCH"
	ErrMissingArgument ErrorCode = "MISSING_ARGUMENT"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrCancelled       ErrorCode = "CANCELLED"
	ErrUnwritable      ErrorCode = "DESTINATION_UNWRITABLE"
	ErrDestMissing     ErrorCode = "DESTINATION_MISSING"
	ErrTempDir         ErrorCode = "TEMPDIR_CREATE"
	ErrToolMissing     ErrorCode = "TOOL_MISSING"
	ErrCommand         ErrorCode = "COMMAND_FAILED"
	ErrInternal        ErrorCode = "INTERNAL"
	ErrConfig          ErrorCode = "CONFIG"
	ErrInterrupted     ErrorCode = "INTERRUPTED"
)

// Exit statuses. Success covers both a fresh install and a skipped duplicate.
const (
	ExitOK              = 0
	ExitUnknown         = 1
	ExitBadSwitch       = 2
	ExitMissingArgument = 3
	ExitNotFound        = 4
	ExitCancelled       = 5
	ExitUnwritable      = 6
	ExitTempDir         = 7
	ExitToolMissing     = 8
	ExitCommand         = 9
	ExitInternal        = 10
	ExitConfig          = 11
	ExitInterrupted     = 130
)

var exitCodes = map[ErrorCode]int{
	ErrUnknown:         ExitUnknown,
	ErrBadSwitch:       ExitBadSwitch,
	ErrMissingArgument: ExitMissingArgument,
	ErrNotFound:        ExitNotFound,
	ErrCancelled:       ExitCancelled,
	ErrUnwritable:      ExitUnwritable,
	ErrDestMissing:     ExitUnwritable,
	ErrTempDir:         ExitTempDir,
	ErrToolMissing:     ExitToolMissing,
	ErrCommand:         ExitCommand,
	ErrInternal:        ExitInternal,
	ErrConfig:          ExitConfig,
	ErrInterrupted:     ExitInterrupted,
}

// Error is a structured error with a code and optional details.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key/value pair that is logged alongside the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func newErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Wrapped: err}
}

func wrapErrorf(err error, code ErrorCode, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// GetErrorCode returns the code of err, or ErrUnknown for foreign errors.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[GetErrorCode(err)]; ok {
		return code
	}
	return ExitUnknown
}
