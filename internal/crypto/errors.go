package crypto

import "fmt"

type ErrorCode string

const (
	// ErrCodeValidation: the input to hash or canonicalise is not usable (empty, not JSON)
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeCertificate: the signing certificate could not be obtained, decoded or opened,
	// or the signing service refused it
	ErrCodeCertificate ErrorCode = "certificate"

	// ErrCodeInternal: the signing service failed or answered with something unusable
	ErrCodeInternal ErrorCode = "internal"
)

// CryptoError carries the code the submission workflow classifies on.
// Certificate errors are never cached, so a caller can fix the certificate and retry.
type CryptoError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *CryptoError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CryptoError) Code() ErrorCode { return e.code }
func (e *CryptoError) Unwrap() error   { return e.wrapped }

func NewValidationError(msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError is returned when canonical JSON cannot be produced for a fingerprint.
func WrapValidationError(err error, msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewCertificateError reports PKCS#12 material that is missing, empty, lacks a key
// pair or was rejected by the signing service.
func NewCertificateError(msg string) error {
	return &CryptoError{code: ErrCodeCertificate, message: msg}
}

// WrapCertificateError reports a failure while fetching, reading, decoding or opening
// the PKCS#12 container (bad base64, wrong password, unreachable URL).
func WrapCertificateError(err error, msg string) error {
	return &CryptoError{code: ErrCodeCertificate, message: msg, wrapped: err}
}

func NewInternalError(msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError reports a signing service call that failed for reasons other
// than the certificate.
func WrapInternalError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg, wrapped: err}
}
