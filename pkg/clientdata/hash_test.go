package clientdata

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"testing"
)

func TestHash_Composition(t *testing.T) {
	for i := 0; i < 10; i++ {
		nonce := make([]byte, 32)
		jwk := make([]byte, 80)
		rand.Read(nonce)
		rand.Read(jwk)

		inner := sha256.Sum256(jwk)
		want := sha256.Sum256(append(append([]byte{}, nonce...), inner[:]...))

		if got := Hash(nonce, jwk); !bytes.Equal(got, want[:]) {
			t.Fatalf("Hash = %x, want %x", got, want)
		}
	}
}

func TestHash_KnownCanonicalJWK(t *testing.T) {
	canonical := []byte(`{"crv":"P-256","kty":"EC","x":"abc","y":"def"}`)
	nonce := []byte("nonce")

	inner := sha256.Sum256(canonical)
	want := sha256.Sum256(append([]byte("nonce"), inner[:]...))

	got := Hash(nonce, canonical)
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("Hash = %x, want %x", got, want)
	}
	if len(got) != sha256.Size {
		t.Fatalf("Hash length = %d, want %d", len(got), sha256.Size)
	}
}
