package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GateAI-net/gate-ios/pkg/clierror"
)

var (
	resetAttestation bool
	resetKeys        bool
)

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetAttestation, "attestation", false, "Delete the local attestation key record")
	resetCmd.Flags().BoolVar(&resetKeys, "keys", false, "Destroy the device keypair (a new one is created on next use)")
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard local credentials",
	Long: `Discard local credential state. With no flags this is a no-op: access
tokens live only in process memory and there is nothing to clear.

--attestation deletes the attestation key record; the next mint
registers a fresh key. --keys destroys the device keypair itself,
which unbinds every credential minted for it.`,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	if !resetAttestation && !resetKeys {
		fmt.Println("Nothing to do: pass --attestation and/or --keys.")
		return nil
	}

	if resetAttestation {
		if err := config.recordStore().Clear(); err != nil {
			return clierror.InternalError(err)
		}
		fmt.Printf("%s attestation key record cleared\n", color.GreenString("ok"))
	}

	if resetKeys {
		if err := config.keyStore().Destroy(); err != nil {
			return clierror.InternalError(err)
		}
		fmt.Printf("%s device keypair destroyed\n", color.GreenString("ok"))
	}
	return nil
}
