//go:build unix

package devicekey

import (
	"fmt"
	"os"
	"path/filepath"
)

// verifyKeyFilePermissions ensures the device key file is accessible to its
// owner only. Any group or world bit fails the check: a readable key file is
// a fully compromised device identity, so the store refuses to load one.
//
// Both 0600 and 0400 are accepted. The key is written once at creation and
// never rewritten, so a host hardening its data directory may legitimately
// drop the owner write bit.
func verifyKeyFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		return fmt.Errorf("%w: device key file %s has mode %04o (group/world bits set)",
			ErrInvalidPermissions, filepath.Base(path), mode)
	}
	if mode&0o400 == 0 {
		return fmt.Errorf("%w: device key file %s has mode %04o (owner cannot read)",
			ErrInvalidPermissions, filepath.Base(path), mode)
	}
	return nil
}

// restrictKeyFile reduces the device key file to owner read/write.
func restrictKeyFile(path string) error {
	return os.Chmod(path, 0o600)
}
