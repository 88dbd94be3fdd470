package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"credvault/internal/domain"
)

func agreeCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "agree [user-id]",
		Short: "Record that a user accepted the legal terms, or check with --check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := domain.UserID(args[0])
			out := cmd.OutOrStdout()
			if check {
				if vault.Agreements.HasValidAgreement(userID) {
					fmt.Fprintf(out, "%s has a valid agreement\n", userID)
				} else {
					fmt.Fprintf(out, "%s has no valid agreement\n", userID)
				}
				return nil
			}
			if err := vault.Agreements.StoreAgreement(userID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Agreement recorded for %s\n", userID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "only report whether a valid agreement exists")
	return cmd
}
