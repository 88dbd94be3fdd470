package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print stored sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sessions := vault.Sessions.Sessions()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No stored sessions")
				return nil
			}
			for _, s := range sessions {
				expires := "unknown"
				if !s.Token.ExpiresAt.IsZero() {
					expires = s.Token.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s\tlast active %s\ttoken expires %s\n",
					s.UserID, s.LastActive.Format(time.RFC3339), expires)
			}
			return nil
		},
	}
}
