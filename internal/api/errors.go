package api

// errors.go defines the errors raised at the HTTP edge

import "fmt"

// ApiError represents a structured error raised by a handler or middleware.
type ApiError struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message, returned to the client
	message string

	// wrapped is the optional underlying error (logged, not returned)
	wrapped error
}

func (e *ApiError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ApiError) Code() ErrorCode { return e.code }
func (e *ApiError) Unwrap() error   { return e.wrapped }

// ErrorCode identifies the kind of edge failure.
// 7000-7999 are technical errors in the request, 8000-8999 are functional errors.
type ErrorCode int

const (
	// ErrCodeInternalError is used when an unexpected server-side failure occurs
	ErrCodeInternalError ErrorCode = 7005

	// ErrCodeMalformedRequest is used when the request body cannot be decoded into a submission
	ErrCodeMalformedRequest ErrorCode = 7006

	// ErrCodeRateLimitExceeded is used by the rate limiting middleware
	ErrCodeRateLimitExceeded ErrorCode = 7009

	// ErrCodeRequestTooLarge is used by the request size middleware
	ErrCodeRequestTooLarge ErrorCode = 7010

	// ErrCodeInvalidParameter is used for a bad path or query parameter
	ErrCodeInvalidParameter ErrorCode = 7011
)

func NewInternalError(msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg}
}

func WrapInternalError(err error, msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// WrapMalformedRequestError reports a body that could not be read or decoded.
func WrapMalformedRequestError(err error, msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

func NewRateLimitError(msg string) error {
	return &ApiError{code: ErrCodeRateLimitExceeded, message: msg}
}

func NewRequestTooLargeError(msg string) error {
	return &ApiError{code: ErrCodeRequestTooLarge, message: msg}
}

func NewInvalidParameterError(msg string) error {
	return &ApiError{code: ErrCodeInvalidParameter, message: msg}
}
