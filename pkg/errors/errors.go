// Package errors defines the typed error taxonomy the HTTP layer renders.
// Every failure a handler can return maps onto a small set of codes; the
// code alone decides the status, retryability, and how much detail leaves
// the process.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Error carries a code, an operator-facing message, an optional public
// label (e.g. "amount_mismatch") and structured details for the response
// body. The cause chain stays loggable via Unwrap.
type Error struct {
	code    Code
	label   string
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// Label is the stable machine-readable identifier exposed to callers,
// e.g. "amount_mismatch" or "reservation_not_found". Empty when the
// error has no public identity beyond its code.
func (e *Error) Label() string {
	if e == nil {
		return ""
	}
	return e.label
}

func (e *Error) WithLabel(label string) *Error {
	if e == nil {
		return nil
	}
	e.label = label
	return e
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As pulls the typed error out of an arbitrary chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
