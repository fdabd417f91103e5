package attest

import "context"

// Unsupported is the provider variant for platforms without an attestation
// service. Every operation except Clear reports ErrUnavailable; Clear has
// nothing to delete and returns nil. The engine surfaces ErrUnavailable as
// AttestationUnavailable unless a development path applies.
type Unsupported struct{}

// NewUnsupported creates the unsupported-platform provider.
func NewUnsupported() *Unsupported {
	return &Unsupported{}
}

func (*Unsupported) EnsureKeyID(context.Context) (string, error) {
	return "", ErrUnavailable
}

func (*Unsupported) Attest(context.Context, string, []byte) ([]byte, error) {
	return nil, ErrUnavailable
}

func (*Unsupported) MarkAttested(string) error {
	return ErrUnavailable
}

func (*Unsupported) GenerateAssertion(context.Context, string, []byte) ([]byte, error) {
	return nil, ErrUnavailable
}

func (*Unsupported) Clear() error {
	return nil
}

var _ Provider = (*Unsupported)(nil)
