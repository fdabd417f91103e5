// Package devicekey manages the long-lived P-256 device keypair that binds
// access tokens to this device.
//
// A Store yields Material: an opaque signing handle, the public key in JWK
// form, and its thumbprint. The signing handle is never exported; DPoP
// signing happens through it. FileStore is the software rendering of the
// hardware-backed store and enforces owner-only file permissions; a Secure
// Enclave implementation plugs in behind the same Store interface.
package devicekey
