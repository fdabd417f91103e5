package devicekey

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "device-key.pem"))
}

func TestLoadOrCreate_CreatesKey(t *testing.T) {
	store := testStore(t)

	if store.Exists() {
		t.Fatal("key should not exist before first use")
	}

	material, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if !store.Exists() {
		t.Error("key file not persisted")
	}
	if material.JWK.Kty != "EC" || material.JWK.Crv != "P-256" {
		t.Errorf("unexpected JWK: %+v", material.JWK)
	}
	if material.Thumbprint != material.JWK.Thumbprint() {
		t.Error("thumbprint does not match JWK")
	}
}

func TestLoadOrCreate_Idempotent(t *testing.T) {
	store := testStore(t)

	first, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("first LoadOrCreate: %v", err)
	}
	second, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}

	if first != second {
		t.Error("repeated calls should return the same material")
	}

	// A fresh store on the same path loads the same key.
	reloaded, err := NewFileStore(store.Path()).LoadOrCreate()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Thumbprint != first.Thumbprint {
		t.Error("reloaded key has a different thumbprint")
	}
}

func TestLoadOrCreate_SignerProducesValidSignatures(t *testing.T) {
	store := testStore(t)
	material, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	message := []byte("signing input")
	der, err := material.Signer.Sign(message)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	key, err := store.load()
	if err != nil {
		t.Fatalf("load raw key: %v", err)
	}
	digest := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(&key.PublicKey, digest[:], der) {
		t.Error("signature does not verify against stored key")
	}
}

func TestLoad_RejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode-bit check is Unix-only")
	}
	store := testStore(t)
	if _, err := store.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if err := os.Chmod(store.Path(), 0644); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	_, err := NewFileStore(store.Path()).LoadOrCreate()
	if !IsPermissionError(err) {
		t.Errorf("got %v, want permission error", err)
	}
}

func TestLoad_AcceptsReadOnlyKeyFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode-bit check is Unix-only")
	}
	store := testStore(t)
	first, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	// A host may drop the owner write bit after creation; the key is never
	// rewritten, so 0400 still loads.
	if err := os.Chmod(store.Path(), 0400); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	reloaded, err := NewFileStore(store.Path()).LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate on 0400 key: %v", err)
	}
	if reloaded.Thumbprint != first.Thumbprint {
		t.Error("reloaded key differs")
	}
}

func TestLoad_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device-key.pem")
	if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewFileStore(path).LoadOrCreate(); err == nil {
		t.Error("expected error loading garbage key file")
	}
}

func TestDestroy(t *testing.T) {
	store := testStore(t)
	first, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if err := store.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if store.Exists() {
		t.Error("key file still present after Destroy")
	}

	// Destroy of an absent key is a no-op.
	if err := store.Destroy(); err != nil {
		t.Errorf("second Destroy: %v", err)
	}

	second, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate after Destroy: %v", err)
	}
	if second.Thumbprint == first.Thumbprint {
		t.Error("expected a new key after Destroy")
	}
}

func TestSignerAvoidsPrivateKeyExposure(t *testing.T) {
	store := testStore(t)
	material, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	// The material exposes only the Signer interface; the concrete type stays
	// unexported. Sanity-check that two signatures over the same input differ
	// (ECDSA nonces), i.e. the handle signs rather than returning fixtures.
	a, err := material.Signer.Sign([]byte("m"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := material.Signer.Sign([]byte("m"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if big.NewInt(0).SetBytes(a).Cmp(big.NewInt(0).SetBytes(b)) == 0 {
		t.Error("two ECDSA signatures over the same message should differ")
	}
}
