package attest

import "context"

// Provider is the platform attestation capability.
//
// Implementations serialize access to the platform APIs themselves; callers
// must assume the underlying primitives are not reentrant.
type Provider interface {
	// EnsureKeyID returns the stored attestation key id, generating a new one
	// via the platform if none exists. It never marks the key as attested.
	EnsureKeyID(ctx context.Context) (string, error)

	// Attest produces the one-time attestation object binding the key to the
	// client-data hash. Called at most once per key id over its lifetime.
	Attest(ctx context.Context, keyID string, clientDataHash []byte) ([]byte, error)

	// MarkAttested records locally that the key id has completed server-side
	// registration.
	MarkAttested(keyID string) error

	// GenerateAssertion produces a fresh assertion bound to the client-data
	// hash. Called on every token mint.
	//
	// Returns ErrNotAttested if the key has not completed registration, and
	// ErrKeyInvalid if the platform has invalidated the key.
	GenerateAssertion(ctx context.Context, keyID string, clientDataHash []byte) ([]byte, error)

	// Clear deletes the stored key id and any associated local state.
	Clear() error
}
