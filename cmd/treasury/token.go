package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"AgentTreasury/internal/api"
	"AgentTreasury/internal/model"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API caller token",
	Long: `Signs a bearer token for the HTTP API with api.jwt_secret. The subject is
the caller address the treasury will see, e.g. the admin or an investor.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.API.JWTSecret == "" {
			return fmt.Errorf("api.jwt_secret is not configured")
		}
		tok, err := api.NewTokens(cfg.API.JWTSecret).Issue(model.Address(tokenSubject), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "caller address carried by the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	_ = tokenCmd.MarkFlagRequired("subject")
}
