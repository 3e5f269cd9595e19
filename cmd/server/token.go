package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lnando2k21/projetofinal/internal/auth"
	"github.com/Lnando2k21/projetofinal/internal/config"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenRole   string
	tokenExpiry time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	Long: `Signs an access token with JWT_SECRET so the API can be exercised
without the identity service. Intended for local development only.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id placed in the user_id claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "CUSTOMER", "CUSTOMER or PROVIDER")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "token lifetime (defaults to JWT_EXPIRY)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	expiry := cfg.JWTExpiry
	if tokenExpiry > 0 {
		expiry = tokenExpiry
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, expiry).GenerateAccessToken(tokenUserID, tokenEmail, tokenRole)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
