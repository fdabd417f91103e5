package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/GateAI-net/gate-ios/pkg/authapi"
	"github.com/GateAI-net/gate-ios/pkg/session"
)

// Exit codes for gatectl.
const (
	ExitSuccess     = 0 // Operation completed successfully
	ExitGeneral     = 1 // Unknown/unhandled error
	ExitAuth        = 2 // Token mint rejected, device blocked
	ExitAttestation = 3 // Attestation failed or unavailable
	ExitConfig      = 4 // Invalid configuration
	ExitRateLimited = 5 // Too many requests
)

// Error codes (strings) for programmatic error handling.
const (
	CodeConfigInvalid          = "CONFIG_INVALID"
	CodeEnclaveUnavailable     = "ENCLAVE_UNAVAILABLE"
	CodeAttestationUnavailable = "ATTESTATION_UNAVAILABLE"
	CodeAttestationFailed      = "ATTESTATION_FAILED"
	CodeDeviceBlocked          = "DEVICE_BLOCKED"
	CodeRateLimited            = "RATE_LIMITED"
	CodeConnectionFailed       = "CONNECTION_FAILED"
	CodeServerRejected         = "SERVER_REJECTED"
	CodeInternalError          = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// ConfigInvalid creates an error for invalid configuration input.
func ConfigInvalid(detail string) *CLIError {
	return &CLIError{
		Code:      CodeConfigInvalid,
		Message:   fmt.Sprintf("configuration invalid: %s", detail),
		Hint:      "Check ~/.gateai/config.yaml (server_url, bundle_id, team_id)",
		Retryable: false,
		ExitCode:  ExitConfig,
	}
}

// EnclaveUnavailable creates an error for a refused hardware key store.
func EnclaveUnavailable() *CLIError {
	return &CLIError{
		Code:      CodeEnclaveUnavailable,
		Message:   "device key store unavailable",
		Hint:      "Verify the key directory is writable, or set GATE_DEVICE_KEY_PATH",
		Retryable: false,
		ExitCode:  ExitAttestation,
	}
}

// AttestationUnavailable creates an error for an unsupported platform.
func AttestationUnavailable() *CLIError {
	return &CLIError{
		Code:      CodeAttestationUnavailable,
		Message:   "device attestation is not supported on this platform",
		Hint:      "Use --emulated against a development gateway, or set a development token in the simulator",
		Retryable: false,
		ExitCode:  ExitAttestation,
	}
}

// AttestationFailed creates an error for a failed attestation flow.
func AttestationFailed(reason string) *CLIError {
	return &CLIError{
		Code:      CodeAttestationFailed,
		Message:   fmt.Sprintf("attestation failed: %s", reason),
		Hint:      "Run 'gatectl reset --attestation' to discard the local attestation key and retry",
		Retryable: true,
		ExitCode:  ExitAttestation,
	}
}

// DeviceBlocked creates an error for a gateway-blocked device.
func DeviceBlocked() *CLIError {
	return &CLIError{
		Code:      CodeDeviceBlocked,
		Message:   "this device has been blocked by the gateway",
		Hint:      "Contact your administrator",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// RateLimited creates an error for rate limiting.
func RateLimited() *CLIError {
	return &CLIError{
		Code:      CodeRateLimited,
		Message:   "rate limit exceeded",
		Hint:      "Wait a moment before retrying",
		Retryable: true,
		ExitCode:  ExitRateLimited,
	}
}

// ConnectionFailed creates an error for transport failures.
func ConnectionFailed(target string) *CLIError {
	return &CLIError{
		Code:      CodeConnectionFailed,
		Message:   fmt.Sprintf("failed to connect to '%s'", target),
		Hint:      "Check network connectivity and the configured server_url",
		Retryable: true,
		ExitCode:  ExitGeneral,
	}
}

// ServerRejected creates an error for other auth API rejections.
func ServerRejected(status int, code string) *CLIError {
	msg := fmt.Sprintf("gateway rejected the request (HTTP %d)", status)
	if code != "" {
		msg = fmt.Sprintf("gateway rejected the request (HTTP %d, %s)", status, code)
	}
	return &CLIError{
		Code:      CodeServerRejected,
		Message:   msg,
		Retryable: status >= 500,
		ExitCode:  ExitAuth,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// FromEngineError maps a session engine error to its CLI representation.
func FromEngineError(err error, serverTarget string) *CLIError {
	var cliErr *CLIError
	switch {
	case err == nil:
		return nil
	case session.IsConfigError(err):
		cliErr = ConfigInvalid(err.Error())
	case session.IsSecureEnclaveUnavailable(err):
		cliErr = EnclaveUnavailable()
	case session.IsAttestationUnavailable(err):
		cliErr = AttestationUnavailable()
	case session.IsAttestationFailed(err):
		cliErr = AttestationFailed(err.Error())
	case session.IsServerError(err, authapi.CodeDeviceBlocked):
		cliErr = DeviceBlocked()
	case session.IsServerError(err, authapi.CodeRateLimited):
		cliErr = RateLimited()
	case session.IsServerError(err, ""):
		cliErr = serverRejection(err)
	case session.IsNetworkError(err):
		cliErr = ConnectionFailed(serverTarget)
	default:
		cliErr = InternalError(err)
	}
	return cliErr
}

func serverRejection(err error) *CLIError {
	var apiErr *authapi.APIError
	if errors.As(err, &apiErr) {
		return ServerRejected(apiErr.Status, apiErr.Code)
	}
	return InternalError(err)
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for a
// human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
