// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sheetvault/sheetvault/internal/config"
	"github.com/sheetvault/sheetvault/internal/logging"
	"github.com/sheetvault/sheetvault/internal/store"
)

const serviceName = "sheetvault"

// app carries state shared by every subcommand of one root command.
type app struct {
	deps       Deps
	configFile string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the SheetVault CLI.
func NewRootCmd(deps Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "sheetvault",
		Short: "SheetVault - character sheets for tabletop RPG tables",
		Long: `SheetVault keeps the character sheets of a tabletop RPG table.
Players control their own characters; masters run the table and may adjust
any character's current points.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newSeedCmd(a))
	cmd.AddCommand(newUserCmd(a))
	cmd.AddCommand(newCharacterCmd(a))

	return cmd
}

// setup loads configuration and installs the default logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logging.Setup(serviceName, version, logging.Options{
		Format: cfg.Log.Format,
		Level:  level,
	}, cmd.ErrOrStderr()))
	a.cfg = cfg
	return nil
}

// connect opens the configured database.
func (a *app) connect(ctx context.Context) (Database, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return a.deps.Connect(ctx, a.cfg.Database.URL, store.RetryConfig{
		Attempts: uint64(a.cfg.Database.ConnectAttempts), //nolint:gosec // validated >= 1
		Backoff:  a.cfg.Database.ConnectBackoff,
	})
}

// services connects and builds the application services. The caller
// closes the returned database.
func (a *app) services(ctx context.Context) (*Services, Database, error) {
	db, err := a.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := a.deps.ServicesFactory(db, nil)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}
