package dpop

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GateAI-net/gate-ios/pkg/codec"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
)

// Type and algorithm constants. The algorithm MUST be ES256 for device keys;
// other algorithms are not permitted.
const (
	// TypeDPoP is the required typ header value for DPoP proofs.
	TypeDPoP = "dpop+jwt"

	// AlgES256 is the only permitted algorithm for device-key proofs.
	AlgES256 = "ES256"
)

// Builder signs DPoP proofs with borrowed device key material. It is
// stateless apart from the key handle and safe for concurrent use; every
// Proof call yields a fresh jti and iat.
type Builder struct {
	key *devicekey.Material

	// Overridable for tests.
	now    func() time.Time
	newJTI func() string
}

// NewBuilder creates a proof builder over the given device key material.
func NewBuilder(key *devicekey.Material) *Builder {
	return &Builder{
		key:    key,
		now:    time.Now,
		newJTI: uuid.NewString,
	}
}

// Proof creates a compact DPoP proof JWT for the given HTTP method and URI.
//
// htm is the uppercase method token; htu is the URI exactly as supplied —
// the proof must match the request the caller actually sends, so no
// normalization is applied here. A non-empty nonce adds the nonce claim
// demanded by a prior DPoP-Nonce challenge.
func (b *Builder) Proof(method, uri, nonce string) (string, error) {
	header := map[string]any{
		"typ": TypeDPoP,
		"alg": AlgES256,
		"jwk": map[string]string{
			"kty": b.key.JWK.Kty,
			"crv": b.key.JWK.Crv,
			"x":   b.key.JWK.X,
			"y":   b.key.JWK.Y,
		},
	}

	payload := map[string]any{
		"htm": strings.ToUpper(method),
		"htu": uri,
		"iat": b.now().Unix(),
		"jti": b.newJTI(),
	}
	if nonce != "" {
		payload["nonce"] = nonce
	}

	// encoding/json marshals map keys in lexicographic order, which is
	// exactly the serialization the gateway verifies against.
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal proof header: %w", err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal proof payload: %w", err)
	}

	signingInput := codec.EncodeBase64URL(headerJSON) + "." + codec.EncodeBase64URL(payloadJSON)

	der, err := b.key.Signer.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("sign dpop proof: %w", err)
	}
	raw, err := codec.RawECDSAFromDER(der, devicekey.CoordLen)
	if err != nil {
		return "", fmt.Errorf("convert dpop signature: %w", err)
	}

	return signingInput + "." + codec.EncodeBase64URL(raw), nil
}

// Key returns the borrowed device key material.
func (b *Builder) Key() *devicekey.Material {
	return b.key
}
