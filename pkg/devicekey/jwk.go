package devicekey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"

	"github.com/GateAI-net/gate-ios/pkg/codec"
)

// CoordLen is the octet length of a P-256 coordinate.
const CoordLen = 32

// JWK is the public half of the device key in JSON Web Key form.
// X and Y are unpadded base64url of the fixed-width 32-byte coordinates.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// JWKFromPublicKey derives the JWK from a P-256 public key.
func JWKFromPublicKey(pub *ecdsa.PublicKey) (JWK, error) {
	if pub.Curve != elliptic.P256() {
		return JWK{}, fmt.Errorf("device key must be P-256, got %s", pub.Curve.Params().Name)
	}

	x := make([]byte, CoordLen)
	y := make([]byte, CoordLen)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)

	return JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   codec.EncodeBase64URL(x),
		Y:   codec.EncodeBase64URL(y),
	}, nil
}

// JWKFromSEC1 derives the JWK from a 65-byte uncompressed SEC1 public key
// (leading 0x04, then 32-byte x and y coordinates). This is the export
// format hardware key stores produce.
func JWKFromSEC1(sec1 []byte) (JWK, error) {
	if len(sec1) != 1+2*CoordLen || sec1[0] != 0x04 {
		return JWK{}, fmt.Errorf("expected 65-byte uncompressed SEC1 point, got %d bytes", len(sec1))
	}
	return JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   codec.EncodeBase64URL(sec1[1 : 1+CoordLen]),
		Y:   codec.EncodeBase64URL(sec1[1+CoordLen:]),
	}, nil
}

// CanonicalJSON returns the byte-exact canonical serialization of the JWK:
// members in crv, kty, x, y order with no whitespace. Both the thumbprint
// and the attestation client-data hash are computed over these exact bytes,
// and the gateway recomputes both, so this must not go through a generic
// JSON marshaler.
func (k JWK) CanonicalJSON() []byte {
	return []byte(`{"crv":"` + k.Crv + `","kty":"` + k.Kty + `","x":"` + k.X + `","y":"` + k.Y + `"}`)
}

// Thumbprint returns base64url(SHA-256(canonical JWK bytes)), the stable
// identifier for the device public key (RFC 7638 for this member set).
func (k JWK) Thumbprint() string {
	digest := sha256.Sum256(k.CanonicalJSON())
	return codec.EncodeBase64URL(digest[:])
}
