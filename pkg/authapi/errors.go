package authapi

import (
	"fmt"
	"net/http"
)

// Server error codes consumed by the engine.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidToken      = "invalid_token"
	CodeDeviceBlocked     = "device_blocked"
	CodeRateLimited       = "rate_limited"
	CodeNonceExpired      = "nonce_expired"
	CodeAttestationFailed = "attestation_failed"
)

// HeaderDPoPNonce is the response header carrying a nonce challenge.
const HeaderDPoPNonce = "DPoP-Nonce"

// APIError is a non-2xx response from the auth API: HTTP status, the parsed
// error envelope when the body carried one, and the response headers so the
// engine can pick up out-of-band signals like DPoP-Nonce.
type APIError struct {
	Status      int
	Code        string
	Description string
	Headers     http.Header
}

// Error implements the error interface. It never includes header values;
// nonces and tokens stay out of diagnostics.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("auth api: HTTP %d", e.Status)
	}
	if e.Description == "" {
		return fmt.Sprintf("auth api: HTTP %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("auth api: HTTP %d %s: %s", e.Status, e.Code, e.Description)
}

// DPoPNonce returns the DPoP-Nonce response header, located
// case-insensitively, or "" if absent.
func (e *APIError) DPoPNonce() string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers.Get(HeaderDPoPNonce)
}

// TransportError is a network-level failure: the request never produced an
// HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("auth api transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 2xx response whose body did not match the expected
// schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("auth api decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
