// Package clientdata computes the client-data hash that binds an attestation
// artifact to a server challenge and a device public key.
package clientdata

import "crypto/sha256"

// Hash computes SHA256(nonce ‖ SHA256(canonicalJWK)).
//
// The inner digest is over the canonical JWK byte form of the device public
// key (see devicekey.JWK.CanonicalJSON); the gateway recomputes the same
// value when it verifies an attestation or assertion.
func Hash(nonce, canonicalJWK []byte) []byte {
	jwkDigest := sha256.Sum256(canonicalJWK)

	h := sha256.New()
	h.Write(nonce)
	h.Write(jwkDigest[:])
	return h.Sum(nil)
}
