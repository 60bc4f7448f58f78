package main

import (
	"fmt"
	"time"

	"github.com/alnah/go-planprint/internal/auth"
)

// runToken executes the token command: it prints a bearer token for the
// print API signed with the configured secret.
func runToken(args []string, env *Environment) error {
	f, err := parseTokenFlags(args, env)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(f.common.config, env)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return ErrMissingSecret
	}

	svc, err := auth.NewService(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	ttl := f.ttl
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	token, expires, err := svc.Issue(auth.IssueInput{
		Subject:  f.subject,
		Username: f.username,
		Roles:    f.roles,
		TTL:      ttl,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Stdout, token)
	if f.common.verbose {
		fmt.Fprintf(env.Stderr, "expires %s\n", expires.UTC().Format(time.RFC3339))
	}
	return nil
}
