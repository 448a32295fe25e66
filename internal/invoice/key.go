package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/information-sharing-networks/sri-gateway/internal/crypto"
)

// MinIdempotencyKeyLength is the shortest caller supplied key that is honoured.
const MinIdempotencyKeyLength = 6

var (
	numericCodePattern = regexp.MustCompile(`^\d{8}$`)
	accessKeyPattern   = regexp.MustCompile(`^\d{49}$`)
)

// DeriveKey returns the idempotency key for a submission.
//
// A caller supplied key of at least MinIdempotencyKeyLength characters is used as is.
// Otherwise the natural key is built from ruc, estab, ptoEmi, secuencial and fechaEmision.
// A submission that has neither is rejected with a validation error.
func DeriveKey(sub Submission) (string, error) {
	if k := strings.TrimSpace(sub.IdempotencyKey); len(k) >= MinIdempotencyKeyLength {
		return k, nil
	}

	it, inf := sub.InfoTributaria, sub.InfoFactura
	if it == nil || inf == nil {
		return "", NewValidationError("cannot derive idempotency key", "idempotency_key missing and infoTributaria/infoFactura not present")
	}
	parts := []string{it.Ruc, it.Estab, it.PtoEmi, it.Secuencial, inf.FechaEmision}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", NewValidationError("cannot derive idempotency key", "idempotency_key missing and ruc, estab, ptoEmi, secuencial and fechaEmision are not all set")
		}
	}
	return strings.Join(parts, "-"), nil
}

// Fingerprint returns the canonical content hash of a submission.
//
// The idempotency key is excluded so the same content sent under a different key
// has the same fingerprint. Member order and whitespace do not affect the result.
func Fingerprint(sub Submission) (string, error) {
	raw, err := json.Marshal(sub)
	if err != nil {
		return "", WrapValidationError(err, "failed to serialise submission")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", WrapValidationError(err, "failed to decode submission")
	}
	delete(fields, "idempotency_key")

	content, err := json.Marshal(fields)
	if err != nil {
		return "", WrapValidationError(err, "failed to serialise submission content")
	}
	return crypto.CanonicalHash(content)
}

// DeriveNumericCode returns the 8 digit code embedded in the access key.
// A well formed supplied code is used as is; otherwise the code is derived
// deterministically from the idempotency key.
func DeriveNumericCode(key, supplied string) string {
	if numericCodePattern.MatchString(supplied) {
		return supplied
	}
	return fmt.Sprintf("%08d", crypto.ShortHash([]byte(key))%100_000_000)
}

// ValidateAccessKey checks that key is a 49 digit SRI access key.
func ValidateAccessKey(key string) error {
	if !accessKeyPattern.MatchString(key) {
		return NewValidationError("invalid access key", "access key must be exactly 49 digits")
	}
	return nil
}
