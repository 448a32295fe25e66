package sri

import (
	"fmt"
	"strings"
)

type ErrorCode string

const (
	// ErrCodeTransport is used when a web service call fails at the network or protocol level
	ErrCodeTransport ErrorCode = "transport"

	// ErrCodeRejected is used when the reception service does not acknowledge a document
	ErrCodeRejected ErrorCode = "rejected"

	// ErrCodeConfiguration is used when no endpoint is configured for an environment
	ErrCodeConfiguration ErrorCode = "configuration"
)

// SriError represents a structured error from the sri package
type SriError struct {
	code    ErrorCode
	message string

	// messages are the diagnostic lines extracted from the service reply
	messages []string

	wrapped error
}

func (e *SriError) Error() string {
	msg := e.message
	if len(e.messages) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.messages, "; "))
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *SriError) Code() ErrorCode    { return e.code }
func (e *SriError) Unwrap() error      { return e.wrapped }
func (e *SriError) Messages() []string { return e.messages }

// NewTransportError creates a transport error.
//
// The returned error will have code ErrCodeTransport.
func NewTransportError(msg string) error {
	return &SriError{code: ErrCodeTransport, message: msg}
}

// WrapTransportError wraps a network or decoding failure.
//
// The returned error will have code ErrCodeTransport.
func WrapTransportError(err error, msg string) error {
	return &SriError{code: ErrCodeTransport, message: msg, wrapped: err}
}

// NewRejectedError reports a document the reception service did not accept.
// messages are the diagnostic lines returned to the caller.
//
// The returned error will have code ErrCodeRejected.
func NewRejectedError(messages []string) error {
	return &SriError{code: ErrCodeRejected, message: "document not received by SRI", messages: messages}
}

// NewConfigurationError creates a configuration error.
//
// The returned error will have code ErrCodeConfiguration.
func NewConfigurationError(msg string) error {
	return &SriError{code: ErrCodeConfiguration, message: msg}
}
