// Package domainerrors carries typed error codes from services to transport
// layers. Stores return sentinel errors; services translate them into coded
// errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	CodeBadRequest          Code = "bad_request"
	CodeValidation          Code = "validation_error"
	CodeInvalidInput        Code = "invalid_input"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeInvariantViolation  Code = "invariant_violation"
	CodeTimeout             Code = "timeout"
	CodeUnavailable         Code = "unavailable"
	CodeInternal            Code = "internal_error"
)

// Error is a coded domain error. Err is optional and kept for unwrapping.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so coded errors can be used as
// sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
