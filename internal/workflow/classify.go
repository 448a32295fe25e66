package workflow

import (
	"context"
	"errors"

	"github.com/information-sharing-networks/sri-gateway/internal/crypto"
	"github.com/information-sharing-networks/sri-gateway/internal/idempotency"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/sri"
)

// Kind is the error taxonomy used to decide how a failure is reported and cached.
type Kind string

const (
	KindValidation  Kind = "ValidationError"
	KindCertificate Kind = "CertificateResolutionError"
	KindTransport   Kind = "TransportError"
	KindRejected    Kind = "RejectedBySubmission"
	KindKeyConflict Kind = "KeyConflictError"
	KindInternal    Kind = "UnknownInternalError"
)

// Cacheable reports whether an ERROR result of this kind is written to the cache.
// Transport and internal failures are not, so a retry runs the workflow again.
func (k Kind) Cacheable() bool {
	return k == KindValidation || k == KindRejected
}

// Classify maps an error from any collaborator to its Kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, idempotency.ErrKeyConflict) {
		return KindKeyConflict
	}

	var invErr *invoice.InvoiceError
	if errors.As(err, &invErr) {
		return KindValidation
	}

	var sriErr *sri.SriError
	if errors.As(err, &sriErr) {
		switch sriErr.Code() {
		case sri.ErrCodeTransport:
			return KindTransport
		case sri.ErrCodeRejected:
			return KindRejected
		default:
			return KindInternal
		}
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		switch cryptoErr.Code() {
		case crypto.ErrCodeCertificate:
			return KindCertificate
		case crypto.ErrCodeValidation:
			return KindValidation
		default:
			return KindInternal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	return KindInternal
}

// errorMessages renders err as the caller visible message lines.
func errorMessages(err error) []string {
	var sriErr *sri.SriError
	if errors.As(err, &sriErr) && len(sriErr.Messages()) > 0 {
		return sriErr.Messages()
	}
	var invErr *invoice.InvoiceError
	if errors.As(err, &invErr) && len(invErr.Issues()) > 0 {
		return invErr.Issues()
	}
	return []string{err.Error()}
}
