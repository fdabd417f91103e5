package session

import (
	"bytes"
	"testing"
)

func TestDecodeChallengeNonce(t *testing.T) {
	cases := []struct {
		name  string
		nonce string
		want  []byte
	}{
		{"base64url", "-_8", []byte{0xfb, 0xff}},
		{"base64url padded", "Zm8=", []byte("fo")},
		{"standard base64", "+/8=", []byte{0xfb, 0xff}},
		{"raw utf-8 fallback", "!!not-base64!!", []byte("!!not-base64!!")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeChallengeNonce(tc.nonce)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("decode(%q) = %x, want %x", tc.nonce, got, tc.want)
			}
		})
	}
}

func TestDecodeChallengeNonce_Empty(t *testing.T) {
	_, err := decodeChallengeNonce("")
	if !IsConfigError(err) {
		t.Fatalf("got %v, want ConfigError", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		BaseURL:  "https://gateway.gateai.net",
		BundleID: "com.example.app",
		TeamID:   "TEAMID1234",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]Config{
		"empty bundle":     {BaseURL: "https://g.example", BundleID: "", TeamID: "TEAMID1234"},
		"short team id":    {BaseURL: "https://g.example", BundleID: "b", TeamID: "SHORT"},
		"non-alnum team":   {BaseURL: "https://g.example", BundleID: "b", TeamID: "TEAM-ID-12"},
		"relative baseurl": {BaseURL: "gateway.example", BundleID: "b", TeamID: "TEAMID1234"},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); !IsConfigError(err) {
			t.Errorf("%s: got %v, want ConfigError", name, err)
		}
	}
}
