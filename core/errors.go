package core

import "github.com/pkg/errors"

// ErrorCode is a stable, machine-readable error identifier exposed to API clients.
type ErrorCode string

const (
	CodeNotFound              ErrorCode = "not_found"
	CodeAlreadyExists         ErrorCode = "already_exists"
	CodeOutOfRange            ErrorCode = "out_of_range"
	CodeMalformedAnswer       ErrorCode = "malformed_answer"
	CodeInvalidTransition     ErrorCode = "invalid_transition"
	CodeCrossTrainingMismatch ErrorCode = "cross_training_mismatch"
)

// Error is a domain error carrying a stable ErrorCode.
type Error struct {
	Code    ErrorCode
	Message string
}

func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (err *Error) Error() string {
	return err.Message
}

// CodeOf returns the ErrorCode of the domain error wrapped by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Code, true
	}
	return "", false
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
