package main

import (
	"errors"
	"fmt"
	"time"

	"fylr/internal/auth"

	"github.com/spf13/cobra"
)

type tokenFlags struct {
	user  string
	email string
	ttl   time.Duration
}

func init() {
	flags := new(tokenFlags)

	tokenCmd := &cobra.Command{
		Use:   "token --user <id> [--email addr] [--ttl 24h]",
		Short: "Mint a development token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Mode != "hmac" {
				return errors.New("tokens can only be minted in hmac auth mode")
			}

			token, err := auth.GenerateToken(flags.user, flags.email, cfg.Auth.Secret, cfg.Auth.Issuer, flags.ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	fs := tokenCmd.Flags()
	fs.StringVarP(&flags.user, "user", "u", "", "owner id placed in the sub claim")
	fs.StringVar(&flags.email, "email", "", "email claim")
	fs.DurationVar(&flags.ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}
