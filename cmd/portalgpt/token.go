package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/portalgpt/auth/jwt"
)

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(flags, false)
			if err != nil {
				return err
			}
			tokens, err := jwt.NewService(rt.cfg.Auth.JWT)
			if err != nil {
				return fmt.Errorf("auth: %w", err)
			}
			token, err := tokens.Generate(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (client name)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: auth.jwt.ttl)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
