package crypto

import (
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// VerifyPKCS12 checks that base64 encoded PKCS#12 material can be opened with password
// and contains at least one certificate and one private key.
//
// Only the legacy PKCS#12 encryption schemes supported by x/crypto/pkcs12 can be checked,
// so callers should treat this as an optional sanity check.
func VerifyPKCS12(p12Base64 string, password string) error {
	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(p12Base64))
	if err != nil {
		return WrapCertificateError(err, "certificate is not valid base64")
	}
	if len(der) == 0 {
		return NewCertificateError("certificate is empty")
	}

	blocks, err := pkcs12.ToPEM(der, password)
	if err != nil {
		return WrapCertificateError(err, "failed to open PKCS#12 certificate")
	}

	var certs, keys int
	for _, b := range blocks {
		switch {
		case b.Type == "CERTIFICATE":
			certs++
		case strings.HasSuffix(b.Type, "PRIVATE KEY"):
			keys++
		}
	}
	if certs == 0 || keys == 0 {
		return NewCertificateError("PKCS#12 certificate must contain a certificate and a private key")
	}
	return nil
}
