package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GateAI-net/gate-ios/pkg/attest"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show device key and attestation state",
	RunE:  runStatus,
}

type statusReport struct {
	ServerURL        string `json:"server_url"`
	BundleID         string `json:"bundle_id"`
	KeyPath          string `json:"key_path"`
	KeyPresent       bool   `json:"key_present"`
	Thumbprint       string `json:"thumbprint,omitempty"`
	AttestationKeyID string `json:"attestation_key_id,omitempty"`
	Attested         bool   `json:"attested"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	keys := config.keyStore()
	report := statusReport{
		ServerURL:  config.ServerURL,
		BundleID:   config.BundleID,
		KeyPath:    keys.Path(),
		KeyPresent: keys.Exists(),
	}

	if report.KeyPresent {
		material, err := keys.LoadOrCreate()
		if err != nil {
			return engineErr(config, err)
		}
		report.Thumbprint = material.Thumbprint
	}

	record, err := config.recordStore().Load()
	switch {
	case err == nil:
		report.AttestationKeyID = record.KeyID
		report.Attested = record.Attested
	case errors.Is(err, attest.ErrRecordNotFound):
		// No record yet; nothing to report.
	default:
		return engineErr(config, err)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printStatus(report)
	return nil
}

func printStatus(report statusReport) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("Gateway:      %s\n", report.ServerURL)
	fmt.Printf("Bundle:       %s\n", report.BundleID)

	if report.KeyPresent {
		fmt.Printf("Device key:   %s (%s)\n", green("present"), report.KeyPath)
		fmt.Printf("Thumbprint:   %s\n", report.Thumbprint)
	} else {
		fmt.Printf("Device key:   %s (created on first mint)\n", yellow("absent"))
	}

	switch {
	case report.Attested:
		fmt.Printf("Attestation:  %s (key id %s)\n", green("registered"), report.AttestationKeyID)
	case report.AttestationKeyID != "":
		fmt.Printf("Attestation:  %s (key id %s)\n", yellow("pending registration"), report.AttestationKeyID)
	default:
		fmt.Printf("Attestation:  %s\n", yellow("no key"))
	}
}
