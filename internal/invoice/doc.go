// Package invoice defines the submission model accepted by the gateway and the
// canonical result returned for every submission or status query.
//
// Callers send one of three document shapes (canonical, legacy, raw document).
// DecodeInput selects the variant and Input.Submission validates it and converts it
// to the single Submission type the workflow operates on.
//
// The package also derives the identifiers that make submissions idempotent:
// the idempotency key, the content fingerprint and the 8 digit numeric code that
// becomes part of the access key.
package invoice
