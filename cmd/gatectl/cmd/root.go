// Package cmd implements the gatectl CLI commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/GateAI-net/gate-ios/internal/version"
	"github.com/GateAI-net/gate-ios/pkg/clierror"
)

var (
	// Global flags
	configPath   string
	serverURL    string
	outputFormat string
	useEmulated  bool
)

var rootCmd = &cobra.Command{
	Use:   "gatectl",
	Short: "Device authentication CLI for the GateAI gateway",
	Long: `gatectl exercises the gate-ios authentication engine from the command
line: it mints device-bound access tokens, prints request headers, shows
device key and attestation state, and resets local credentials.

On hosts without platform attestation, --emulated runs a software
attestation provider; development gateways accept it, production ones do
not.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.gateai/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Gateway URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: json or text")
	rootCmd.PersistentFlags().BoolVar(&useEmulated, "emulated", false, "Use the emulated attestation provider")
}

// Execute runs the root command and exits with the mapped exit code on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cliErr, ok := err.(*clierror.CLIError)
		if !ok {
			cliErr = clierror.InternalError(err)
		}
		clierror.PrintError(cliErr, outputFormat)
		os.Exit(cliErr.ExitCode)
	}
}
