package session

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/GateAI-net/gate-ios/pkg/attest"
	"github.com/GateAI-net/gate-ios/pkg/authapi"
	"github.com/GateAI-net/gate-ios/pkg/clientdata"
	"github.com/GateAI-net/gate-ios/pkg/codec"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
	"github.com/GateAI-net/gate-ios/pkg/dpop"
)

// maxMintAttempts bounds the attempt loop: one attestation key regeneration
// (after an invalidation or a server-side "registration required") and one
// further try with the fresh key.
const maxMintAttempts = 2

// mintToken runs the full mint flow: device key, challenge, assertion (with
// registration when the key is new), token exchange.
func (s *Session) mintToken(ctx context.Context) (*accessToken, error) {
	material, builder, err := s.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	devEligible := s.cfg.DevelopmentToken != ""
	if devEligible && s.env.IsSimulator() {
		return s.mintDevToken(ctx, material, builder)
	}

	challenge, err := s.api.Challenge(ctx)
	if err != nil {
		return nil, err
	}
	nonceBytes, err := decodeChallengeNonce(challenge.Nonce)
	if err != nil {
		return nil, err
	}

	cdh := clientdata.Hash(nonceBytes, material.JWK.CanonicalJSON())

	keyID, err := s.provider.EnsureKeyID(ctx)
	if err != nil {
		if attest.IsUnavailable(err) && devEligible {
			// A dev token exists but this is not the simulator; refusing
			// beats silently minting an unattested identity.
			return nil, &ConfigError{Message: "development token is only honored in the simulator"}
		}
		return nil, err
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		assertion, err := s.provider.GenerateAssertion(ctx, keyID, cdh)
		if attest.IsNotAttested(err) {
			if regErr := s.register(ctx, builder, material, keyID, challenge, cdh); regErr != nil {
				return nil, regErr
			}
			assertion, err = s.provider.GenerateAssertion(ctx, keyID, cdh)
		}
		if attest.IsKeyInvalid(err) {
			if attempt > 0 {
				return nil, &AttestationError{Message: "attestation key invalid after regeneration", Err: err}
			}
			s.log.Info("attestation key invalidated, regenerating", "key_id", keyID)
			if keyID, err = s.regenerateKey(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, &AttestationError{Message: "generate assertion", Err: err}
		}

		token, err := s.exchange(ctx, builder, &authapi.TokenRequest{
			Platform:     authapi.PlatformIOS,
			App:          authapi.AppInfo{BundleID: s.cfg.BundleID},
			DeviceKeyJWK: material.JWK,
			Attestation: &authapi.AssertionPayload{
				Type:      authapi.AttestationTypeAppAttest,
				KeyID:     keyID,
				TeamID:    s.cfg.TeamID,
				Assertion: base64.StdEncoding.EncodeToString(assertion),
			},
		})
		if err != nil {
			if isRegistrationRequired(err) && attempt == 0 {
				s.log.Info("server requires re-registration, regenerating attestation key", "key_id", keyID)
				if keyID, err = s.regenerateKey(ctx); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		return token, nil
	}

	// Unreachable: every attempt either returns or regenerates exactly once.
	return nil, &AttestationError{Message: "mint attempts exhausted"}
}

// mintDevToken is the simulator path: no challenge, no attestation, a DPoP
// proof and the configured development token.
func (s *Session) mintDevToken(ctx context.Context, material *devicekey.Material, builder *dpop.Builder) (*accessToken, error) {
	s.log.Debug("minting with development token")
	return s.exchange(ctx, builder, &authapi.TokenRequest{
		Platform:     authapi.PlatformIOS,
		App:          authapi.AppInfo{BundleID: s.cfg.BundleID},
		DeviceKeyJWK: material.JWK,
		DevToken:     s.cfg.DevelopmentToken,
	})
}

// register runs the one-time registration sub-flow for an unattested key.
// Any failure surfaces as AttestationError and leaves the key unmarked.
func (s *Session) register(ctx context.Context, builder *dpop.Builder, material *devicekey.Material, keyID string, challenge *authapi.Challenge, cdh []byte) error {
	blob, err := s.provider.Attest(ctx, keyID, cdh)
	if err != nil {
		return &AttestationError{Message: "attest key", Err: err}
	}

	endpoint := s.api.Endpoint(authapi.PathRegister)
	proof, err := builder.Proof(http.MethodPost, endpoint, "")
	if err != nil {
		return &AttestationError{Message: "build registration proof", Err: err}
	}

	resp, err := s.api.Register(ctx, proof, &authapi.RegisterRequest{
		Platform:     authapi.PlatformIOS,
		App:          authapi.AppInfo{BundleID: s.cfg.BundleID},
		DeviceKeyJWK: material.JWK,
		Attestation: authapi.AttestationPayload{
			Type:        authapi.AttestationTypeAppAttest,
			KeyID:       keyID,
			TeamID:      s.cfg.TeamID,
			Attestation: base64.StdEncoding.EncodeToString(blob),
		},
		// The challenge nonce goes back exactly as received.
		Nonce: challenge.Nonce,
		DPoP:  proof,
	})
	if err != nil {
		return &AttestationError{Message: "registration rejected", Err: err}
	}
	if !resp.Registered {
		return &AttestationError{Message: "server did not confirm registration"}
	}

	if err := s.provider.MarkAttested(keyID); err != nil {
		return &AttestationError{Message: "record attested state", Err: err}
	}
	s.log.Info("attestation key registered", "key_id", keyID)
	return nil
}

// regenerateKey clears the local attestation record and obtains a fresh key
// id from the provider.
func (s *Session) regenerateKey(ctx context.Context) (string, error) {
	if err := s.provider.Clear(); err != nil {
		return "", &AttestationError{Message: "clear attestation record", Err: err}
	}
	keyID, err := s.provider.EnsureKeyID(ctx)
	if err != nil {
		return "", err
	}
	return keyID, nil
}

// exchange calls /token with a fresh proof, honoring a single DPoP-Nonce
// challenge: on 401 with a nonce header, the proof is rebuilt with that
// nonce and the request resent exactly once.
func (s *Session) exchange(ctx context.Context, builder *dpop.Builder, req *authapi.TokenRequest) (*accessToken, error) {
	endpoint := s.api.Endpoint(authapi.PathToken)

	proof, err := builder.Proof(http.MethodPost, endpoint, "")
	if err != nil {
		return nil, err
	}
	req.DPoP = proof

	resp, err := s.api.Token(ctx, proof, req)
	if err != nil {
		nonce := tokenNonceChallenge(err)
		if nonce == "" {
			return nil, err
		}

		s.log.Debug("retrying token exchange with server nonce")
		proof, perr := builder.Proof(http.MethodPost, endpoint, nonce)
		if perr != nil {
			return nil, perr
		}
		req.DPoP = proof
		if resp, err = s.api.Token(ctx, proof, req); err != nil {
			return nil, err
		}
	}

	if resp.AccessToken == "" || resp.ExpiresIn <= 0 {
		return nil, ErrInvalidResponse
	}
	return &accessToken{
		value:     resp.AccessToken,
		expiresAt: s.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		mode:      resp.Mode,
	}, nil
}

// tokenNonceChallenge extracts the DPoP-Nonce from a 401, or "".
func tokenNonceChallenge(err error) string {
	var apiErr *authapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		return ""
	}
	return apiErr.DPoPNonce()
}

// decodeChallengeNonce decodes the challenge nonce: base64url first, then
// standard base64, then the raw text bytes.
func decodeChallengeNonce(nonce string) ([]byte, error) {
	if nonce == "" {
		return nil, &ConfigError{Message: "challenge nonce is empty"}
	}
	if decoded, err := codec.DecodeBase64URL(nonce); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(nonce); err == nil {
		return decoded, nil
	}
	return []byte(nonce), nil
}
