package attest

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// attestationObject is the CBOR envelope of a one-time attestation, shaped
// after the App Attest attestation statement format.
type attestationObject struct {
	Format   string         `cbor:"fmt"`
	AttStmt  attestationStmt `cbor:"attStmt"`
	AuthData []byte         `cbor:"authData"`
}

type attestationStmt struct {
	Signature []byte `cbor:"sig"`
	Receipt   []byte `cbor:"receipt"`
}

// assertionObject is the CBOR envelope of a per-request assertion.
type assertionObject struct {
	Signature         []byte `cbor:"signature"`
	AuthenticatorData []byte `cbor:"authenticatorData"`
}

// Emulated is a software attestation provider. It stands in for the platform
// service on hosts without attestation hardware: keys are plain in-process
// P-256 keys, and attestation/assertion blobs are CBOR objects signed with
// them. The gateway cannot verify these against Apple, so emulated operation
// is only meaningful against development gateways; its value is driving the
// full engine lifecycle, including the generated → attested → invalidated
// transitions, without the platform SDK.
//
// The key id is the standard-base64 SHA-256 of the public key, matching the
// platform convention. Key material lives only in process memory; a record
// that survives into a new process without its key yields ErrKeyInvalid,
// which exercises the engine's invalidation recovery.
type Emulated struct {
	appID   string
	records RecordStore

	mu       sync.Mutex
	keys     map[string]*ecdsa.PrivateKey
	counters map[string]uint32
}

// NewEmulated creates an emulated provider. appID is the rp identifier baked
// into authenticator data (conventionally team_id.bundle_id).
func NewEmulated(appID string, records RecordStore) *Emulated {
	return &Emulated{
		appID:    appID,
		records:  records,
		keys:     make(map[string]*ecdsa.PrivateKey),
		counters: make(map[string]uint32),
	}
}

// EnsureKeyID returns the recorded key id, generating a new keypair and
// record when none exists. The new record is not marked attested.
func (e *Emulated) EnsureKeyID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.Load()
	if err == nil {
		return record.KeyID, nil
	}
	if err != ErrRecordNotFound {
		return "", err
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate attestation key: %w", err)
	}
	keyID := keyIDFor(&key.PublicKey)

	if err := e.records.Save(&KeyRecord{KeyID: keyID}); err != nil {
		return "", err
	}
	e.keys[keyID] = key
	e.counters[keyID] = 0
	return keyID, nil
}

// Attest produces the one-time CBOR attestation object for the key.
func (e *Emulated) Attest(ctx context.Context, keyID string, clientDataHash []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key, ok := e.keys[keyID]
	if !ok {
		return nil, ErrKeyInvalid
	}

	authData := e.authenticatorData(0)
	sig, err := signArtifact(key, authData, clientDataHash)
	if err != nil {
		return nil, err
	}

	blob, err := cbor.Marshal(attestationObject{
		Format:   "apple-appattest",
		AttStmt:  attestationStmt{Signature: sig},
		AuthData: authData,
	})
	if err != nil {
		return nil, fmt.Errorf("encode attestation object: %w", err)
	}
	return blob, nil
}

// MarkAttested flips the stored record to attested.
func (e *Emulated) MarkAttested(keyID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.Load()
	if err != nil {
		return err
	}
	if record.KeyID != keyID {
		return fmt.Errorf("key id mismatch: record holds %s", record.KeyID)
	}
	record.Attested = true
	return e.records.Save(record)
}

// GenerateAssertion produces a fresh CBOR assertion bound to the hash.
func (e *Emulated) GenerateAssertion(ctx context.Context, keyID string, clientDataHash []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.Load()
	if err != nil || record.KeyID != keyID {
		return nil, ErrKeyInvalid
	}
	key, ok := e.keys[keyID]
	if !ok {
		// Record survived but the key did not (new process): the platform
		// equivalent of an invalidated key.
		return nil, ErrKeyInvalid
	}
	if !record.Attested {
		return nil, ErrNotAttested
	}

	e.counters[keyID]++
	authData := e.authenticatorData(e.counters[keyID])

	sig, err := signArtifact(key, authData, clientDataHash)
	if err != nil {
		return nil, err
	}

	blob, err := cbor.Marshal(assertionObject{
		Signature:         sig,
		AuthenticatorData: authData,
	})
	if err != nil {
		return nil, fmt.Errorf("encode assertion object: %w", err)
	}
	return blob, nil
}

// Clear deletes the record and drops key material.
func (e *Emulated) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.keys = make(map[string]*ecdsa.PrivateKey)
	e.counters = make(map[string]uint32)
	return e.records.Clear()
}

// authenticatorData builds the rpIdHash ‖ flags ‖ signCount prefix of
// authenticator data.
func (e *Emulated) authenticatorData(counter uint32) []byte {
	rpHash := sha256.Sum256([]byte(e.appID))
	out := make([]byte, 37)
	copy(out, rpHash[:])
	out[32] = 0x40 // attested credential data present
	binary.BigEndian.PutUint32(out[33:], counter)
	return out
}

// signArtifact signs SHA256(SHA256(authData ‖ clientDataHash)) with the
// attestation key, the nesting the platform applies to assertion nonces.
func signArtifact(key *ecdsa.PrivateKey, authData, clientDataHash []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(authData)
	h.Write(clientDataHash)
	nonce := h.Sum(nil)

	digest := sha256.Sum256(nonce)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign attestation artifact: %w", err)
	}
	return sig, nil
}

func keyIDFor(pub *ecdsa.PublicKey) string {
	sec1 := elliptic.Marshal(elliptic.P256(), pub.X, pub.Y)
	digest := sha256.Sum256(sec1)
	return base64.StdEncoding.EncodeToString(digest[:])
}

var _ Provider = (*Emulated)(nil)
