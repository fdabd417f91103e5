// Package codec provides the byte-level encodings used across the SDK:
// base64url without padding, and conversion of DER-encoded ECDSA signatures
// to the fixed-width raw r‖s form required by JOSE signatures.
package codec
