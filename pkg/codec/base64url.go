package codec

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64URL encodes data as base64url without padding.
func EncodeBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeBase64URL decodes base64url data. Padding is tolerated on input:
// trailing '=' characters are stripped before decoding.
func DecodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
