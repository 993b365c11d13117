// Package domainerrors carries coded errors across service boundaries.
//
// Services translate store and infrastructure failures into a Code so callers
// (transport adapters, schedulers, operators) can react without string matching.
// The wrapped cause stays reachable through errors.Is / errors.As.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest            Code = "bad_request"
	CodeValidation            Code = "validation_error"
	CodeInvalidInput          Code = "invalid_input"
	CodeNotFound              Code = "not_found"
	CodeConflict              Code = "conflict"
	CodeInvalidState          Code = "invalid_state"
	CodePaymentFailed         Code = "payment_failed"
	CodeExternalPublishFailed Code = "external_publish_failed"
	CodeRefundFailed          Code = "refund_failed"
	CodeInvariantViolation    Code = "invariant_violation"
	CodeTimeout               Code = "timeout"
	CodeInternal              Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A nil err yields a plain coded error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any coded error in err's tree carries code.
// Joined errors are searched branch by branch.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*Error); ok && de.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(x.Unwrap(), code)
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
