// crypto package provides the low level hashing, canonicalisation and certificate
// helpers used by the gateway.
//
// The gateway does not sign documents itself (signing is delegated to the signing
// service, see the signer package). Functions here are limited to content addressing
// (request fingerprints, numeric codes) and sanity checks on PKCS#12 material.
package crypto
