package dpop

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GateAI-net/gate-ios/pkg/codec"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	store := devicekey.NewFileStore(filepath.Join(t.TempDir(), "device-key.pem"))
	material, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("load device key: %v", err)
	}
	return NewBuilder(material)
}

func TestProof_Structure(t *testing.T) {
	builder := testBuilder(t)

	proof, err := builder.Proof("POST", "https://gateway.example.com/v1/token", "")
	if err != nil {
		t.Fatalf("build proof: %v", err)
	}

	parts := strings.Split(proof, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 JWT parts, got %d", len(parts))
	}
	for i, part := range parts {
		if part == "" {
			t.Errorf("part %d is empty", i)
		}
		if strings.ContainsAny(part, "+/=") {
			t.Errorf("part %d is not unpadded base64url: %q", i, part)
		}
	}
}

func TestProof_HeaderClaims(t *testing.T) {
	builder := testBuilder(t)
	proof, err := builder.Proof("POST", "https://gateway.example.com/v1/token", "")
	if err != nil {
		t.Fatalf("build proof: %v", err)
	}

	header, _, _, err := ParseProof(proof)
	if err != nil {
		t.Fatalf("parse proof: %v", err)
	}

	if header["typ"] != TypeDPoP {
		t.Errorf("typ = %v, want %s", header["typ"], TypeDPoP)
	}
	if header["alg"] != AlgES256 {
		t.Errorf("alg = %v, want %s", header["alg"], AlgES256)
	}

	jwk, ok := header["jwk"].(map[string]any)
	if !ok {
		t.Fatal("jwk member missing")
	}
	if jwk["kty"] != "EC" || jwk["crv"] != "P-256" {
		t.Errorf("jwk kty/crv = %v/%v, want EC/P-256", jwk["kty"], jwk["crv"])
	}
	if jwk["x"] != builder.Key().JWK.X || jwk["y"] != builder.Key().JWK.Y {
		t.Error("jwk coordinates do not match device key")
	}
}

func TestProof_PayloadClaims(t *testing.T) {
	builder := testBuilder(t)
	builder.now = func() time.Time { return time.Unix(1700000000, 0) }

	proof, err := builder.Proof("get", "https://gateway.example.com/v1/chat?q=1", "")
	if err != nil {
		t.Fatalf("build proof: %v", err)
	}

	_, payload, _, err := ParseProof(proof)
	if err != nil {
		t.Fatalf("parse proof: %v", err)
	}

	if payload["htm"] != "GET" {
		t.Errorf("htm = %v, want uppercase GET", payload["htm"])
	}
	// htu is the exact URL as supplied, query string included.
	if payload["htu"] != "https://gateway.example.com/v1/chat?q=1" {
		t.Errorf("htu = %v, URL was altered", payload["htu"])
	}
	if payload["iat"] != float64(1700000000) {
		t.Errorf("iat = %v, want 1700000000", payload["iat"])
	}
	if payload["jti"] == "" || payload["jti"] == nil {
		t.Error("jti missing")
	}
	if _, ok := payload["nonce"]; ok {
		t.Error("nonce claim present without a challenge")
	}
}

func TestProof_NonceClaim(t *testing.T) {
	builder := testBuilder(t)
	proof, err := builder.Proof("POST", "https://gateway.example.com/v1/token", "server-nonce-1")
	if err != nil {
		t.Fatalf("build proof: %v", err)
	}

	_, payload, _, err := ParseProof(proof)
	if err != nil {
		t.Fatalf("parse proof: %v", err)
	}
	if payload["nonce"] != "server-nonce-1" {
		t.Errorf("nonce = %v, want server-nonce-1", payload["nonce"])
	}
}

func TestProof_UniqueJTI(t *testing.T) {
	builder := testBuilder(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		proof, err := builder.Proof("POST", "https://gateway.example.com/v1/token", "")
		if err != nil {
			t.Fatalf("build proof: %v", err)
		}
		_, payload, _, err := ParseProof(proof)
		if err != nil {
			t.Fatalf("parse proof: %v", err)
		}
		jti := payload["jti"].(string)
		if seen[jti] {
			t.Fatalf("jti %s repeated", jti)
		}
		seen[jti] = true
	}
}

func TestProof_SortedKeySerialization(t *testing.T) {
	builder := testBuilder(t)
	proof, err := builder.Proof("POST", "https://gateway.example.com/v1/token", "n1")
	if err != nil {
		t.Fatalf("build proof: %v", err)
	}

	// Re-marshaling the decoded objects with encoding/json (which sorts map
	// keys) must reproduce the signing input byte for byte.
	parts := strings.Split(proof, ".")
	for i, name := range []string{"header", "payload"} {
		raw, err := codec.DecodeBase64URL(parts[i])
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", name, err)
		}
		sorted, err := json.Marshal(decoded)
		if err != nil {
			t.Fatalf("re-marshal %s: %v", name, err)
		}
		if string(sorted) != string(raw) {
			t.Errorf("%s is not in lexicographic key order:\n got %s\nwant %s", name, raw, sorted)
		}
	}
}

func TestVerifyProof(t *testing.T) {
	builder := testBuilder(t)
	proof, err := builder.Proof("POST", "https://gateway.example.com/v1/token", "")
	if err != nil {
		t.Fatalf("build proof: %v", err)
	}

	if !VerifyProof(proof) {
		t.Fatal("proof does not verify against its embedded JWK")
	}

	// Flipping a signing-input byte must break verification.
	parts := strings.Split(proof, ".")
	payload, err := codec.DecodeBase64URL(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	payload[0] ^= 0x01
	tampered := parts[0] + "." + codec.EncodeBase64URL(payload) + "." + parts[2]
	if VerifyProof(tampered) {
		t.Error("tampered proof still verifies")
	}
}

func TestVerifyProof_Garbage(t *testing.T) {
	for _, proof := range []string{"", "a.b", "a.b.c.d", "!.!.!"} {
		if VerifyProof(proof) {
			t.Errorf("garbage %q verified", proof)
		}
	}
}
