package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"credvault/internal/domain"
)

func resumeCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "resume [user-id]",
		Short: "Resume a stored session (the most recent one when no user is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			// The CLI has no login layer; resuming reports the session.
			report := func(_ context.Context, s domain.Session) error {
				state := "valid"
				if !s.Token.ExpiresAt.IsZero() && s.Token.ExpiresAt.Before(time.Now()) {
					state = "expired, refresh required"
				}
				fmt.Fprintf(out, "Resumed %s (access token %s)\n", s.UserID, state)
				return nil
			}

			if len(args) == 1 {
				return vault.Sessions.Resume(ctx, domain.UserID(args[0]), report)
			}
			return vault.Sessions.ResumeLast(ctx, report)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "resume deadline")
	return cmd
}
