package dpop

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-jose/go-jose/v4"

	"github.com/GateAI-net/gate-ios/pkg/codec"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
)

// ParseProof splits a compact DPoP proof into its decoded components.
// This is support for tests and debugging; the SDK never validates its own
// proofs in production, the gateway does.
func ParseProof(proof string) (header, payload map[string]any, signature []byte, err error) {
	parts := strings.Split(proof, ".")
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("invalid JWT: expected 3 parts, got %d", len(parts))
	}

	headerBytes, err := codec.DecodeBase64URL(parts[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode header: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, nil, fmt.Errorf("unmarshal header: %w", err)
	}

	payloadBytes, err := codec.DecodeBase64URL(parts[1])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, nil, nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	signature, err = codec.DecodeBase64URL(parts[2])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode signature: %w", err)
	}

	return header, payload, signature, nil
}

// VerifyProof verifies a proof's raw r‖s signature against the public key
// embedded in its own jwk header member.
func VerifyProof(proof string) bool {
	parts := strings.Split(proof, ".")
	if len(parts) != 3 {
		return false
	}

	pub, err := EmbeddedKey(proof)
	if err != nil {
		return false
	}

	signature, err := codec.DecodeBase64URL(parts[2])
	if err != nil || len(signature) != 2*devicekey.CoordLen {
		return false
	}

	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	r := new(big.Int).SetBytes(signature[:devicekey.CoordLen])
	s := new(big.Int).SetBytes(signature[devicekey.CoordLen:])
	return ecdsa.Verify(pub, digest[:], r, s)
}

// EmbeddedKey extracts the ECDSA public key from a proof's jwk header.
func EmbeddedKey(proof string) (*ecdsa.PublicKey, error) {
	header, _, _, err := ParseProof(proof)
	if err != nil {
		return nil, err
	}

	jwkMember, ok := header["jwk"]
	if !ok {
		return nil, fmt.Errorf("proof header has no jwk member")
	}
	jwkJSON, err := json.Marshal(jwkMember)
	if err != nil {
		return nil, fmt.Errorf("re-marshal jwk: %w", err)
	}

	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(jwkJSON); err != nil {
		return nil, fmt.Errorf("parse jwk: %w", err)
	}

	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwk is not an ECDSA public key (%T)", jwk.Key)
	}
	return pub, nil
}
