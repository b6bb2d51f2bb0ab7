// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package main is the entry point for the SheetVault command.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sheetvault/sheetvault/internal/access"
	"github.com/sheetvault/sheetvault/pkg/errutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd(Deps{})
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		errutil.LogError(slog.Default(), "command failed", err)
		fmt.Fprintln(os.Stderr, "Error:", access.Message(err))
		os.Exit(1)
	}
}
