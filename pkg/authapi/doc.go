// Package authapi is the typed wire adapter for the gateway's device
// authentication API: challenge issuance, attestation registration, and
// token exchange. It owns request/response schemas and the structured
// server-error envelope; classification and recovery policy live in the
// session engine.
package authapi
