// fingerprints are computed over JSON canonicalized per RFC 8785 (JCS):
// object members are sorted at every depth and numbers/strings have a single
// serialisation, so semantically identical payloads hash identically regardless of field order.
// this implementation uses the gowebpki/jcs library to perform this canonicalization
package crypto

import (
	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
// This ensures consistent hashing of JSON documents
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	return jcs.Transform(jsonData)
}

// CanonicalHash canonicalizes jsonData and returns its SHA-256 hex digest.
func CanonicalHash(jsonData []byte) (string, error) {
	canonical, err := CanonicalizeJSON(jsonData)
	if err != nil {
		return "", WrapValidationError(err, "failed to canonicalize JSON")
	}
	return Hash(canonical)
}
