package codec

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestBase64URL_RoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 2, 3, 31, 32, 33, 64, 1000} {
		data := make([]byte, size)
		if _, err := rand.Read(data); err != nil {
			t.Fatalf("rand: %v", err)
		}

		encoded := EncodeBase64URL(data)
		decoded, err := DecodeBase64URL(encoded)
		if err != nil {
			t.Fatalf("decode size %d: %v", size, err)
		}
		if !bytes.Equal(data, decoded) {
			t.Errorf("round trip mismatch at size %d", size)
		}
	}
}

func TestEncodeBase64URL_NoPadding(t *testing.T) {
	for _, in := range []string{"f", "fo", "foo", "foob"} {
		encoded := EncodeBase64URL([]byte(in))
		if len(encoded) > 0 && encoded[len(encoded)-1] == '=' {
			t.Errorf("EncodeBase64URL(%q) = %q, contains padding", in, encoded)
		}
	}
}

func TestDecodeBase64URL_ToleratesPadding(t *testing.T) {
	// "fo" encodes as "Zm8" unpadded, "Zm8=" padded.
	for _, in := range []string{"Zm8", "Zm8="} {
		decoded, err := DecodeBase64URL(in)
		if err != nil {
			t.Fatalf("decode %q: %v", in, err)
		}
		if string(decoded) != "fo" {
			t.Errorf("decode %q = %q, want %q", in, decoded, "fo")
		}
	}
}

func TestDecodeBase64URL_URLAlphabet(t *testing.T) {
	// 0xfb 0xff encodes with '-' and '_' in the URL alphabet.
	decoded, err := DecodeBase64URL("-_8")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, []byte{0xfb, 0xff}) {
		t.Errorf("decode = %x, want fbff", decoded)
	}
}

func TestDecodeBase64URL_RejectsStandardAlphabet(t *testing.T) {
	if _, err := DecodeBase64URL("+/8"); err == nil {
		t.Error("expected error decoding standard-alphabet input")
	}
}
