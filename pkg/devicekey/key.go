package devicekey

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Signer is the opaque signing handle for the device key. Implementations
// hash the message with SHA-256 and return a DER-encoded ECDSA signature,
// matching the contract of platform key stores (the private key itself never
// crosses this interface).
//
// Implementations must be safe for concurrent use.
type Signer interface {
	// Sign signs SHA-256(message) with the device private key and returns
	// the DER-encoded ECDSA signature.
	Sign(message []byte) ([]byte, error)
}

// Material is the device key material handed to proof builders: the signing
// handle, the public JWK, and its thumbprint. The JWK and thumbprint are
// immutable once derived.
type Material struct {
	Signer     Signer
	JWK        JWK
	Thumbprint string
}

// NewMaterial assembles Material from a signing handle and its public key.
func NewMaterial(signer Signer, pub *ecdsa.PublicKey) (*Material, error) {
	jwk, err := JWKFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Material{
		Signer:     signer,
		JWK:        jwk,
		Thumbprint: jwk.Thumbprint(),
	}, nil
}

// softwareSigner signs with an in-process ECDSA key. It is the signing
// handle FileStore produces.
type softwareSigner struct {
	key *ecdsa.PrivateKey
}

func (s *softwareSigner) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign with device key: %w", err)
	}
	return sig, nil
}

var _ Signer = (*softwareSigner)(nil)
