// Package attest defines the device attestation capability the auth engine
// depends on, plus the implementations that ship with the SDK.
//
// A Provider owns the platform attestation key: it generates a key id,
// produces the one-time attestation blob used for registration, produces
// per-request assertion blobs, and records whether the key has completed
// server-side registration. The engine depends only on the Provider
// interface, never on a concrete variant, so simulator and test operation
// need no platform SDK.
//
// Failure classification is part of the contract: ErrNotAttested tells the
// engine to register, ErrKeyInvalid tells it to clear and regenerate, and
// ErrUnavailable means the platform does not support attestation at all.
package attest
