package devicekey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrSecureStoreUnavailable indicates the platform refused hardware-backed
	// key storage (or the software fallback location cannot be prepared).
	ErrSecureStoreUnavailable = errors.New("secure key store unavailable")

	// ErrInvalidPermissions indicates the key file is accessible to other
	// users. On Unix the file mode must have no group or world bits set (0600
	// and 0400 both pass); on Windows the file must not be accessible to any
	// principal other than its owner and SYSTEM.
	ErrInvalidPermissions = errors.New("insecure file permissions: file accessible to other users")

	// ErrInvalidKeyFormat indicates the key file is not a PKCS#8 PEM holding
	// a P-256 private key.
	ErrInvalidKeyFormat = errors.New("invalid key format: expected PKCS#8 PRIVATE KEY PEM with a P-256 key")
)

// Store yields the device key material, creating it on first use. Repeated
// calls return the same material.
type Store interface {
	// LoadOrCreate locates the device keypair for this installation, creating
	// one if none exists, and returns its material.
	LoadOrCreate() (*Material, error)
}

// MVPWarning is the startup warning for software key storage. Hosts should
// log it once when running with FileStore instead of a hardware-backed store.
const MVPWarning = "Using file-based device key storage (MVP mode). Hardware binding required for production."

// FileStore persists the device key as a PKCS#8 PEM file with owner-only
// permissions. It is the software fallback for platforms without a Secure
// Enclave; the file path is derived from the host bundle identifier so each
// bundle identity gets exactly one key.
type FileStore struct {
	path string

	mu       sync.Mutex
	material *Material
}

// NewFileStore creates a store backed by the given key file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultKeyPath returns the conventional key file location for a bundle
// identifier: ~/.gateai/<bundle_id>/device-key.pem. An override via the
// GATE_DEVICE_KEY_PATH environment variable wins.
func DefaultKeyPath(bundleID string) string {
	if env := os.Getenv("GATE_DEVICE_KEY_PATH"); env != "" {
		return env
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".gateai", bundleID, "device-key.pem")
}

// LoadOrCreate returns the device key material, generating and persisting a
// new P-256 keypair on first use. The operation is idempotent.
func (s *FileStore) LoadOrCreate() (*Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.material != nil {
		return s.material, nil
	}

	key, err := s.load()
	if errors.Is(err, os.ErrNotExist) {
		key, err = s.create()
	}
	if err != nil {
		return nil, err
	}

	signer := &softwareSigner{key: key}
	material, err := NewMaterial(signer, &key.PublicKey)
	if err != nil {
		return nil, err
	}
	s.material = material
	return material, nil
}

// Exists returns true if a key file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the key file path (for display purposes).
func (s *FileStore) Path() string {
	return s.path
}

// Destroy removes the persisted key and forgets the cached material. This is
// the host-triggered reset; a new key is created on the next LoadOrCreate.
func (s *FileStore) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.material = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove key file: %w", err)
	}
	return nil
}

func (s *FileStore) load() (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}

	if err := verifyKeyFilePermissions(s.path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidKeyFormat
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("%w: got PEM type %q", ErrInvalidKeyFormat, block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, ErrInvalidKeyFormat
	}
	return key, nil
}

func (s *FileStore) create() (*ecdsa.PrivateKey, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create key directory: %v", ErrSecureStoreUnavailable, err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal device key: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return nil, fmt.Errorf("%w: write key file: %v", ErrSecureStoreUnavailable, err)
	}
	if err := restrictKeyFile(s.path); err != nil {
		return nil, fmt.Errorf("set key file permissions: %w", err)
	}
	return key, nil
}

var _ Store = (*FileStore)(nil)

// IsPermissionError returns true if the error is due to invalid permissions.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrInvalidPermissions)
}
