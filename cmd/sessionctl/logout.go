// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// newLogoutCmd creates the logout subcommand.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Long: `Resolve the current session, then end it. The local state is cleared
even when the server-side revocation fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogout(cmd, defaultDeps())
		},
	}
}

func runLogout(cmd *cobra.Command, deps Deps) error {
	deps = deps.fill()

	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(appCfg)

	mgr, _, err := deps.ManagerFactory(appCfg, slog.Default())
	if err != nil {
		return err
	}

	// Resolve first so logout knows which endpoint to revoke against.
	if _, err := mgr.Initialize(cmd.Context(), false); err != nil {
		return err
	}

	state := mgr.Logout(cmd.Context())
	if state.Authenticated() {
		cmd.Println("Logout left a session behind, check the server logs")
		return nil
	}
	cmd.Println("Logged out")
	return nil
}
