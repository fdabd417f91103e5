//go:build windows

package devicekey

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// broadSIDs are the well-known principals whose presence on a device key
// file's DACL makes the key readable beyond its owner. A key file reachable
// by any of them is a fully compromised device identity.
type broadSIDs struct {
	everyone           *windows.SID // S-1-1-0
	users              *windows.SID // S-1-5-32-545
	authenticatedUsers *windows.SID // S-1-5-11
	system             *windows.SID // S-1-5-18 (tolerated: SYSTEM reads everything anyway)
}

// wellKnownSIDs creates the SID set once. Creation of well-known SIDs cannot
// fail on a functioning Windows installation; an error here surfaces on
// first key access instead of at package load.
var wellKnownSIDs = sync.OnceValues(func() (*broadSIDs, error) {
	s := &broadSIDs{}
	for _, item := range []struct {
		kind windows.WELL_KNOWN_SID_TYPE
		dst  **windows.SID
	}{
		{windows.WinWorldSid, &s.everyone},
		{windows.WinBuiltinUsersSid, &s.users},
		{windows.WinAuthenticatedUserSid, &s.authenticatedUsers},
		{windows.WinLocalSystemSid, &s.system},
	} {
		sid, err := windows.CreateWellKnownSid(item.kind)
		if err != nil {
			return nil, fmt.Errorf("create well-known SID %d: %w", item.kind, err)
		}
		*item.dst = sid
	}
	return s, nil
})

// verifyKeyFilePermissions ensures the device key file is accessible to its
// owner (and SYSTEM) only. Any ACE granting access to Everyone, Users,
// Authenticated Users, or an unrelated account fails the check.
func verifyKeyFilePermissions(path string) error {
	sids, err := wellKnownSIDs()
	if err != nil {
		return err
	}

	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.OWNER_SECURITY_INFORMATION,
	)
	if err != nil {
		return fmt.Errorf("read device key file security info: %w", err)
	}

	dacl, _, err := sd.DACL()
	if err != nil {
		return fmt.Errorf("read device key file DACL: %w", err)
	}
	if dacl == nil {
		// A NULL DACL grants everyone full control.
		return fmt.Errorf("%w: device key file has no DACL", ErrInvalidPermissions)
	}

	owner, _, err := sd.Owner()
	if err != nil {
		return fmt.Errorf("read device key file owner: %w", err)
	}

	if grantee := firstBroadGrantee(dacl, owner, sids); grantee != "" {
		return fmt.Errorf("%w: device key file accessible to %s", ErrInvalidPermissions, grantee)
	}
	return nil
}

// firstBroadGrantee walks the DACL and names the first principal other than
// the owner or SYSTEM that holds an ACE, or "" when the file is owner-only.
func firstBroadGrantee(dacl *windows.ACL, owner *windows.SID, sids *broadSIDs) string {
	for i := uint32(0); i < uint32(dacl.AceCount); i++ {
		var ace *windows.ACCESS_ALLOWED_ACE
		if err := getAce(dacl, i, &ace); err != nil {
			return fmt.Sprintf("unreadable ACE %d (%v)", i, err)
		}

		sid := (*windows.SID)(unsafe.Pointer(&ace.SidStart))
		switch {
		case sid.Equals(owner), sid.Equals(sids.system):
			continue
		case sid.Equals(sids.everyone):
			return "Everyone"
		case sid.Equals(sids.users):
			return "the Users group"
		case sid.Equals(sids.authenticatedUsers):
			return "Authenticated Users"
		default:
			return "another account (" + sid.String() + ")"
		}
	}
	return ""
}

// restrictKeyFile replaces the device key file's DACL with explicit entries
// for the owner and SYSTEM only, with inheritance from the parent directory
// blocked so directory-wide grants cannot reopen the key.
func restrictKeyFile(path string) error {
	sids, err := wellKnownSIDs()
	if err != nil {
		return err
	}

	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.OWNER_SECURITY_INFORMATION,
	)
	if err != nil {
		return fmt.Errorf("read device key file owner info: %w", err)
	}
	owner, _, err := sd.Owner()
	if err != nil {
		return fmt.Errorf("read device key file owner SID: %w", err)
	}

	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{
		keyFileAccess(owner, windows.TRUSTEE_IS_USER),
		keyFileAccess(sids.system, windows.TRUSTEE_IS_WELL_KNOWN_GROUP),
	}, nil)
	if err != nil {
		return fmt.Errorf("build device key file ACL: %w", err)
	}

	err = windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil,
		nil,
		acl,
		nil,
	)
	if err != nil {
		return fmt.Errorf("set device key file DACL: %w", err)
	}
	return nil
}

// keyFileAccess builds the read/write/delete grant used for the key file.
// Execute is deliberately absent; the file holds key material, not code.
func keyFileAccess(sid *windows.SID, trusteeType windows.TRUSTEE_TYPE) windows.EXPLICIT_ACCESS {
	return windows.EXPLICIT_ACCESS{
		AccessPermissions: windows.GENERIC_READ | windows.GENERIC_WRITE | windows.DELETE,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       windows.NO_INHERITANCE,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  trusteeType,
			TrusteeValue: windows.TrusteeValueFromSID(sid),
		},
	}
}

// getAce wraps advapi32 GetAce; x/sys/windows exposes no ACE iterator of its
// own.
func getAce(acl *windows.ACL, index uint32, ace **windows.ACCESS_ALLOWED_ACE) error {
	ret, _, err := syscall.SyscallN(
		procGetAce.Addr(),
		uintptr(unsafe.Pointer(acl)),
		uintptr(index),
		uintptr(unsafe.Pointer(ace)),
	)
	if ret == 0 {
		return err
	}
	return nil
}

var (
	modadvapi32 = windows.NewLazySystemDLL("advapi32.dll")
	procGetAce  = modadvapi32.NewProc("GetAce")
)
