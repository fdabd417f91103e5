package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GateAI-net/gate-ios/pkg/attest"
	"github.com/GateAI-net/gate-ios/pkg/authapi"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
)

var (
	// ErrTokenMissing indicates a read of a token that was never acquired.
	ErrTokenMissing = errors.New("no access token has been acquired")

	// ErrInvalidResponse indicates a response without the expected framing.
	ErrInvalidResponse = errors.New("response lacks expected framing")
)

// ConfigError is invalid engine input: an undecodable challenge nonce, a
// development token outside the simulator, and the like.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Message
}

// AttestationError means the attestation key failed to produce a usable
// artifact or registration was rejected.
type AttestationError struct {
	Message string
	Err     error
}

func (e *AttestationError) Error() string {
	if e.Err == nil {
		return "attestation failed: " + e.Message
	}
	return fmt.Sprintf("attestation failed: %s: %v", e.Message, e.Err)
}

func (e *AttestationError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true for invalid engine input.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsAttestationFailed returns true when attestation produced no usable
// artifact or registration was rejected.
func IsAttestationFailed(err error) bool {
	var attErr *AttestationError
	return errors.As(err, &attErr)
}

// IsAttestationUnavailable returns true when the platform does not support
// attestation at all.
func IsAttestationUnavailable(err error) bool {
	return attest.IsUnavailable(err)
}

// IsSecureEnclaveUnavailable returns true when the key store refused
// hardware-backed storage.
func IsSecureEnclaveUnavailable(err error) bool {
	return errors.Is(err, devicekey.ErrSecureStoreUnavailable)
}

// IsNetworkError returns true for transport-level failures.
func IsNetworkError(err error) bool {
	var transportErr *authapi.TransportError
	return errors.As(err, &transportErr)
}

// IsServerError returns true for a non-2xx auth API response, optionally
// narrowing to a specific error code.
func IsServerError(err error, code string) bool {
	var apiErr *authapi.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return code == "" || apiErr.Code == code
}

// IsDecodingError returns true when a response did not match its schema.
func IsDecodingError(err error) bool {
	var decodeErr *authapi.DecodeError
	return errors.As(err, &decodeErr)
}

// isRegistrationRequired matches the server's signal that the attestation
// key is unknown and must be re-registered.
func isRegistrationRequired(err error) bool {
	var apiErr *authapi.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 401 &&
		apiErr.Code == authapi.CodeAttestationFailed &&
		strings.Contains(strings.ToLower(apiErr.Description), "registration required")
}
