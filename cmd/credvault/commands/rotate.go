package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"credvault/internal/crypto"
)

func rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Replace the device key pair and re-encrypt stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The manager already holds the decrypted ledger; write it back
			// under the new pair.
			sessions := vault.Sessions.Sessions()
			km, err := vault.Keys.Rotate()
			if err != nil {
				return err
			}
			if err := vault.Ledger.Save(sessions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key pair rotated.\nStrategy: %s\nFingerprint: %s\n",
				km.Strategy, crypto.Fingerprint(km))
			return nil
		},
	}
}
