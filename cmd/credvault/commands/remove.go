package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"credvault/internal/domain"
)

func removeCmd() *cobra.Command {
	var last bool
	cmd := &cobra.Command{
		Use:   "remove [user-id]",
		Short: "Delete one user's session, or the least recently active one with --last",
		Args: func(cmd *cobra.Command, args []string) error {
			if last {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if last {
				if err := vault.Sessions.RemoveLast(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Least recently active session removed")
				return nil
			}
			if err := vault.Sessions.Remove(domain.UserID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session removed for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&last, "last", false, "remove the least recently active session")
	return cmd
}

func removeAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-all",
		Short: "Delete every stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := vault.Sessions.RemoveAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All sessions removed")
			return nil
		},
	}
}
