// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
//
// Engine errors are mapped to operator-facing codes, messages and hints here.
// Configuration, attestation and internal errors carry the underlying error
// text in their message.
package clierror
