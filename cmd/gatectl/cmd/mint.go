package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mintCmd)
}

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a device-bound access token",
	Long: `Mint an access token from the gateway, running attestation and
registration as needed, and print the bearer value to stdout.

The token is short-lived and never persisted; each invocation mints a
fresh one. Intended for scripting and debugging:

  curl -H "Authorization: Bearer $(gatectl mint)" ...`,
	RunE: runMint,
}

func runMint(cmd *cobra.Command, args []string) error {
	sess, config, err := buildSession()
	if err != nil {
		return err
	}

	token, err := sess.CurrentToken(cmd.Context())
	if err != nil {
		return engineErr(config, err)
	}
	mode, _ := sess.Mode()

	if outputFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"access_token": token,
			"mode":         mode,
		})
	}

	fmt.Println(token)
	if mode != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.GreenString("minted"), color.New(color.Faint).Sprintf("(mode: %s)", mode))
	}
	return nil
}
