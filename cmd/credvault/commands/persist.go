package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"credvault/internal/domain"
)

func persistCmd() *cobra.Command {
	var (
		accessToken  string
		refreshToken string
		idToken      string
		scope        string
		expiresIn    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "persist [user-id]",
		Short: "Store a session for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := domain.UserID(args[0])
			now := time.Now().UTC()
			session := domain.Session{
				UserID:     userID,
				LastActive: now,
				Token: domain.UserToken{
					AccessToken:  accessToken,
					RefreshToken: refreshToken,
					IDToken:      idToken,
					Scope:        scope,
				},
			}
			if expiresIn > 0 {
				session.Token.ExpiresAt = now.Add(expiresIn)
			}
			if !session.Token.Valid(userID) {
				return fmt.Errorf("token for %s is not usable: access and refresh tokens are required, and an id token must name the user", userID)
			}
			if err := vault.Sessions.Persist(session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session stored for %s\n", userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&accessToken, "access-token", "", "access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token")
	cmd.Flags().StringVar(&idToken, "id-token", "", "OpenID Connect id token (JWT)")
	cmd.Flags().StringVar(&scope, "scope", "", "granted scope")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "access token lifetime")
	return cmd
}
