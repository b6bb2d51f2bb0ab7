// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/sheetvault/sheetvault/internal/auth"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserRegisterCmd(a))
	return cmd
}

func newUserRegisterCmd(a *app) *cobra.Command {
	req := auth.RegisterRequest{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a player or master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, db, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := svc.Registrar.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			cmd.Printf("Registered %s <%s> as %s (%s)\n", user.Name, user.Email, user.Role(), user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (at least 8 characters)")
	cmd.Flags().BoolVar(&req.IsMaster, "master", false, "register as a game master")
	for _, name := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(name) //nolint:errcheck // flag is defined above
	}

	return cmd
}
