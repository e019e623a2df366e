// Package errors provides structured errors with stable codes for the
// ingestion pipeline. Codes identify the failure class so callers can decide
// between recovering locally and surfacing the failure.
package errors

import (
	"errors"
	"fmt"
)

// Error codes as constants.
const (
	ErrCodeQuantityParse      = "QUANTITY_PARSE"
	ErrCodeIdentityDerivation = "IDENTITY_DERIVATION"
	ErrCodeSnapshotBuild      = "SNAPSHOT_BUILD"
	ErrCodeGraphTransaction   = "GRAPH_TRANSACTION"
	ErrCodeCollect            = "COLLECT"
	ErrCodeConfig             = "CONFIG"
	ErrCodeInternal           = "INTERNAL"
)

// Error is a structured error carrying a stable code.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a structured error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a structured error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(code string, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf attaches a code and formatted message to an underlying error.
func Wrapf(code string, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the outermost structured error in err's chain,
// or ErrCodeInternal when the chain carries none.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}
