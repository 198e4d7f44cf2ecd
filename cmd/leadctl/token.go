package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/leadbook/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		userID  string
		asJSON  bool
		ttlFlag time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token --user <user-id>",
		Short: "Mint a session token for development",
		Long: `Token signs a session token with the configured JWT secret. Pass it as
"Authorization: Bearer <token>" or in the auth-token cookie.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ttl := c.cfg.Auth.TokenTTL
			if ttlFlag > 0 {
				ttl = ttlFlag
			}
			tokens, err := auth.NewTokenService(c.cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			tok, err := tokens.Issue(userID)
			if err != nil {
				return err
			}

			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
				return nil
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"token":     tok.Value,
				"jti":       tok.ID,
				"expiresAt": tok.ExpiresAt.UTC().Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to embed in the token (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print token, jti and expiry as JSON")
	cmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "token lifetime (default: AUTH_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
