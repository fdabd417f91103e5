package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var headersMethod string

func init() {
	rootCmd.AddCommand(headersCmd)
	headersCmd.Flags().StringVarP(&headersMethod, "method", "X", "POST", "HTTP method the proof binds to")
}

var headersCmd = &cobra.Command{
	Use:   "headers <url>",
	Short: "Print Authorization and DPoP headers for a request",
	Long: `Mint (or reuse) an access token and print the Authorization and DPoP
headers for the exact method and URL given. The DPoP proof is freshly
signed and single-use; generate a new pair for every request.

Example:

  gatectl headers -X POST https://gateway.gateai.net/v1/chat`,
	Args: cobra.ExactArgs(1),
	RunE: runHeaders,
}

func runHeaders(cmd *cobra.Command, args []string) error {
	sess, config, err := buildSession()
	if err != nil {
		return err
	}

	auth, err := sess.Headers(cmd.Context(), strings.ToUpper(headersMethod), args[0], "")
	if err != nil {
		return engineErr(config, err)
	}

	if outputFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"authorization": "Bearer " + auth.Bearer,
			"dpop":          auth.DPoP,
		})
	}

	fmt.Printf("Authorization: Bearer %s\n", auth.Bearer)
	fmt.Printf("DPoP: %s\n", auth.DPoP)
	return nil
}
