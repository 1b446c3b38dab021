package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/staff-hours/api"
	"github.com/warp/staff-hours/generic"
)

var (
	tokenUser  string
	tokenName  string
	tokenAdmin bool
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token with the configured secret (development only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := api.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, generic.Identity{
			UserID:      generic.UserID(tokenUser),
			DisplayName: tokenName,
			IsAdmin:     tokenAdmin,
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (required)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "Grant the admin claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
