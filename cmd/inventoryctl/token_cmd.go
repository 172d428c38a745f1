package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/configuration"
)

type tokenOptions struct {
	id     int64
	role   string
	ttl    time.Duration
	secret string
	issuer string
}

func newTokenCmd() *cobra.Command {
	var opts tokenOptions

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.secret == "" {
				conf := configuration.Use()
				opts.secret = conf.Auth.JWTSecret
				if opts.issuer == "" {
					opts.issuer = conf.Auth.JWTIssuer
				}
			}
			token, err := issueToken(opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().Int64Var(&opts.id, "id", 1, "User id")
	cmd.Flags().StringVar(&opts.role, "role", string(actor.RoleAdmin), "admin or editor")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "Signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&opts.issuer, "issuer", "", "Issuer (defaults to JWT_ISSUER)")
	return cmd
}

func issueToken(opts tokenOptions) (string, error) {
	role, ok := actor.ParseRole(opts.role)
	if !ok {
		return "", fmt.Errorf("invalid --role %q", opts.role)
	}
	if opts.id <= 0 {
		return "", fmt.Errorf("invalid --id %d", opts.id)
	}
	return actor.SignToken(opts.secret, opts.issuer, actor.New(opts.id, role), opts.ttl)
}
