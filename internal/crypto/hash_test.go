package crypto

import (
	"testing"
)

func TestHash(t *testing.T) {

	// check that empty input returns an error
	input := []byte("")
	_, err := Hash(input)
	if err == nil {
		t.Fatalf("Hash() expected error, got nil")
	}

	// check the function retuns a sha-256 hex digest (lowercase hex, 64 characters)
	input = []byte("hello world")
	result, err := Hash(input)
	if err != nil {
		t.Fatalf("Hash() returned error: %v", err)
	}

	// Check that result is 64 hex characters (SHA-256)
	if len(result) != 64 {
		t.Errorf("Hash() returned %d characters, expected 64", len(result))
	}

	// Check that result is lowercase hex
	for _, c := range result {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("Hash() returned non-hex character: %c", c)
		}
	}

	// sha256("hello world")
	if result != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("Hash() = %s, want the sha-256 digest of the input", result)
	}
}

func TestShortHash(t *testing.T) {
	a := ShortHash([]byte("0102202401179001691900110010010000000011"))
	b := ShortHash([]byte("0102202401179001691900110010010000000011"))
	if a != b {
		t.Fatalf("ShortHash() is not stable: %d != %d", a, b)
	}

	// sha256("hello world") begins b94d27b9934d3e08
	if got := ShortHash([]byte("hello world")); got != 0xb94d27b9934d3e08 {
		t.Errorf("ShortHash() = %x, want b94d27b9934d3e08", got)
	}
}

func TestVerifyPKCS12RejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!"},
		{"empty", ""},
		{"not pkcs12", "aGVsbG8gd29ybGQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPKCS12(tt.input, "secret")
			if err == nil {
				t.Fatal("VerifyPKCS12() expected error, got nil")
			}
			var cryptoErr *CryptoError
			if ce, ok := err.(*CryptoError); ok {
				cryptoErr = ce
			}
			if cryptoErr == nil || cryptoErr.Code() != ErrCodeCertificate {
				t.Errorf("expected certificate error, got %v", err)
			}
		})
	}
}
