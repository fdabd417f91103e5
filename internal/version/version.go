// Package version reports the SDK release and the product token the SDK
// presents to the gateway.
package version

import "strings"

// SDKName is the product name used in the User-Agent token.
const SDKName = "gate-ios"

// Version is the current SDK release.
// This is a var (not const) so ldflags -X can override it at build time.
var Version = "0.0.0-dev"

// String returns the release for display, normalized to a single 'v' prefix
// whether Version came from a git tag ("v1.2.3") or a bare build ("1.2.3").
func String() string {
	return "v" + bare()
}

// UserAgent returns the product token sent on auth API requests,
// e.g. "gate-ios/1.2.3". The gateway logs it to correlate SDK releases with
// request behavior.
func UserAgent() string {
	return SDKName + "/" + bare()
}

func bare() string {
	return strings.TrimPrefix(Version, "v")
}
