package authapi

import "github.com/GateAI-net/gate-ios/pkg/devicekey"

// API endpoint paths.
const (
	PathChallenge = "/attest/challenge"
	PathRegister  = "/attest/register"
	PathToken     = "/token"
)

// PlatformIOS is the platform discriminator this SDK sends.
const PlatformIOS = "ios"

// AttestationTypeAppAttest is the attestation scheme discriminator.
const AttestationTypeAppAttest = "app_attest"

// ChallengeRequest is the body for POST /attest/challenge.
type ChallengeRequest struct {
	Purpose string `json:"purpose"`
}

// Challenge is an ephemeral server nonce, consumed within one attestation
// flow. Nonce is base64url text as received; decoding is the engine's
// concern.
type Challenge struct {
	Nonce string `json:"nonce"`
	Exp   int64  `json:"exp"`
}

// AppInfo identifies the host application.
type AppInfo struct {
	BundleID string `json:"bundle_id"`
}

// AttestationPayload carries the one-time attestation object during
// registration.
type AttestationPayload struct {
	Type        string `json:"type"`
	KeyID       string `json:"key_id"`
	TeamID      string `json:"team_id"`
	Attestation string `json:"attestation"`
}

// RegisterRequest is the body for POST /attest/register. Nonce echoes the
// challenge nonce verbatim as received; DPoP repeats the proof also sent in
// the DPoP header.
type RegisterRequest struct {
	Platform     string             `json:"platform"`
	App          AppInfo            `json:"app"`
	DeviceKeyJWK devicekey.JWK      `json:"device_key_jwk"`
	Attestation  AttestationPayload `json:"attestation"`
	Nonce        string             `json:"nonce"`
	DPoP         string             `json:"dpop"`
}

// RegisterResponse is the result of POST /attest/register.
type RegisterResponse struct {
	Registered bool   `json:"registered"`
	KeyID      string `json:"key_id"`
}

// AssertionPayload carries a per-mint assertion during token exchange.
type AssertionPayload struct {
	Type      string `json:"type"`
	KeyID     string `json:"key_id"`
	TeamID    string `json:"team_id"`
	Assertion string `json:"assertion"`
}

// TokenRequest is the body for POST /token. Exactly one of Attestation or
// DevToken is set, never both.
type TokenRequest struct {
	Platform     string            `json:"platform"`
	App          AppInfo           `json:"app"`
	DeviceKeyJWK devicekey.JWK     `json:"device_key_jwk"`
	Attestation  *AssertionPayload `json:"attestation,omitempty"`
	DevToken     string            `json:"dev_token,omitempty"`
	DPoP         string            `json:"dpop"`
}

// TokenResponse is the result of POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Mode        string `json:"mode,omitempty"`
}
