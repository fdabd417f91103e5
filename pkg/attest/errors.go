package attest

import "errors"

var (
	// ErrNotAttested indicates the attestation key exists but has not
	// completed server-side registration. The engine reacts by registering
	// and retrying.
	ErrNotAttested = errors.New("attestation key not attested yet")

	// ErrKeyInvalid indicates the platform has invalidated the attestation
	// key. The engine reacts by clearing the record and regenerating.
	ErrKeyInvalid = errors.New("attestation key invalidated by platform")

	// ErrUnavailable indicates the platform does not support attestation.
	ErrUnavailable = errors.New("attestation unavailable on this platform")

	// ErrRecordNotFound indicates no attestation key record exists in storage.
	ErrRecordNotFound = errors.New("attestation key record not found")
)

// IsNotAttested returns true if the error signals a key awaiting registration.
func IsNotAttested(err error) bool {
	return errors.Is(err, ErrNotAttested)
}

// IsKeyInvalid returns true if the error signals an invalidated key.
func IsKeyInvalid(err error) bool {
	return errors.Is(err, ErrKeyInvalid)
}

// IsUnavailable returns true if the error signals an unsupported platform.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
