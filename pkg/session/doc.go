// Package session implements the device authentication engine: it manages
// the device key, drives one-time attestation registration, exchanges
// assertions for short-lived access tokens, and produces the per-request
// Authorization and DPoP headers.
//
// A Session caches the current access token in memory and coalesces
// concurrent mints into a single in-flight operation. It recovers locally
// from exactly three conditions: server nonce challenges (one retry with the
// supplied nonce), provider-signaled key invalidation (one clear-and-retry),
// and server-reported "registration required" (one clear-and-retry). All
// other failures propagate to the caller.
//
// Bearer values, proofs, assertions, and nonces are secret material and are
// never logged; diagnostics carry key ids and thumbprints only.
package session
