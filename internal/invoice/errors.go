package invoice

import (
	"fmt"
	"strings"
)

type ErrorCode string

const (
	// ErrCodeValidation is used when a submission is missing required sections or fields are badly formatted
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeMalformed is used when the request body cannot be decoded at all
	ErrCodeMalformed ErrorCode = "malformed"
)

// InvoiceError represents a structured error from the invoice package.
type InvoiceError struct {
	// code is the invoice error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// issues lists the individual field problems found during validation
	issues []string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *InvoiceError) Error() string {
	msg := e.message
	if len(e.issues) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.issues, "; "))
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *InvoiceError) Code() ErrorCode  { return e.code }
func (e *InvoiceError) Unwrap() error    { return e.wrapped }
func (e *InvoiceError) Issues() []string { return e.issues }

// NewValidationError creates a validation error for invalid input.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string, issues ...string) error {
	return &InvoiceError{code: ErrCodeValidation, message: msg, issues: issues}
}

// WrapValidationError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeValidation.
func WrapValidationError(err error, msg string) error {
	return &InvoiceError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// WrapMalformedError wraps a decoding failure.
//
// The returned error will have code ErrCodeMalformed.
func WrapMalformedError(err error, msg string) error {
	return &InvoiceError{code: ErrCodeMalformed, message: msg, wrapped: err}
}
