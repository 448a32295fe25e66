// this file provides the SHA-256 hashing functions used for content addressing.
//
// SHA-256 is used for:
//   1. Content fingerprints of submission payloads (canonical JSON)
//   2. Short numeric digests that seed the 8 digit numeric code of an access key

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// Hash calculates SHA-256 checksum (hash) and returns hex string.
//
// Use this for:
// - Canonical JSON
// - Any data already in memory
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("data is empty")
	}
	hasher := sha256.New()

	if _, err := io.Copy(hasher, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to hash data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ShortHash returns the first 8 bytes of the SHA-256 digest of data as an unsigned integer.
//
// The value is stable for a given input and suitable for deriving short
// decimal codes; it is not meant to be collision resistant.
func ShortHash(data []byte) uint64 {
	sum := sha256.Sum256(data)
	return binary.BigEndian.Uint64(sum[:8])
}
