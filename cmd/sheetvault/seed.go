// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sheetvault/sheetvault/internal/roster"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	validateOnly bool
	timeout      time.Duration
}

func newSeedCmd(a *app) *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed <roster.yaml>",
		Short: "Load users and characters from a roster file",
		Long: `Registers the roster's users and creates its characters.
Users whose email is already registered are skipped. Characters are created
again on every run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSeed(cmd, args[0], cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.validateOnly, "validate-only", false, "check the roster without touching the database")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func (a *app) runSeed(cmd *cobra.Command, path string, cfg *seedConfig) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied roster file
	if err != nil {
		return oops.Code("ROSTER_READ_FAILED").With("path", path).Wrap(err)
	}

	r, err := roster.Parse(data)
	if err != nil {
		return err
	}

	if cfg.validateOnly {
		cmd.Printf("%s: valid (%d users, %d characters)\n", path, len(r.Users), len(r.Characters))
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	svc, db, err := a.services(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := roster.Apply(ctx, r, svc.Registrar, svc.Characters)
	if err != nil {
		return err
	}

	cmd.Printf("Users: %d created, %d already registered\n", result.UsersCreated, result.UsersSkipped)
	cmd.Printf("Characters: %d created\n", result.CharactersCreated)
	return nil
}
