// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// newLoginCmd creates the login subcommand group.
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Establish a session",
	}

	cmd.AddCommand(newLoginFirebaseCmd())
	cmd.AddCommand(newLoginPlayerCmd())

	return cmd
}

// newLoginFirebaseCmd creates the firebase login subcommand.
func newLoginFirebaseCmd() *cobra.Command {
	var idToken string

	cmd := &cobra.Command{
		Use:   "firebase",
		Short: "Log in with a Firebase ID token",
		Long: `Exchange a Firebase ID token for a server session and adopt the
canonical identity the server returns.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoginFirebase(cmd, idToken, defaultDeps())
		},
	}

	cmd.Flags().StringVar(&idToken, "token", "", "Firebase ID token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

// newLoginPlayerCmd creates the player login subcommand.
func newLoginPlayerCmd() *cobra.Command {
	var privacyCode string

	cmd := &cobra.Command{
		Use:   "player",
		Short: "Log in with a player privacy code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoginPlayer(cmd, privacyCode, defaultDeps())
		},
	}

	cmd.Flags().StringVar(&privacyCode, "privacy-code", "", "player privacy code")
	_ = cmd.MarkFlagRequired("privacy-code")

	return cmd
}

func runLoginFirebase(cmd *cobra.Command, idToken string, deps Deps) error {
	deps = deps.fill()
	if idToken == "" {
		return oops.Code("LOGIN_INVALID_ARGS").Errorf("a Firebase ID token is required")
	}

	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(appCfg)

	mgr, _, err := deps.ManagerFactory(appCfg, slog.Default())
	if err != nil {
		return err
	}

	state, err := mgr.LoginFirebase(cmd.Context(), idToken)
	if err != nil {
		return err
	}

	u, ok := state.Identity.User()
	if !ok {
		cmd.Println("Logged in")
		return nil
	}
	cmd.Printf("Logged in as %s (%s)\n", u.DisplayName, u.Role)
	if mgr.NeedsOnboarding() {
		cmd.Println("Onboarding is incomplete for this account")
	}
	return nil
}

func runLoginPlayer(cmd *cobra.Command, privacyCode string, deps Deps) error {
	deps = deps.fill()
	if privacyCode == "" {
		return oops.Code("LOGIN_INVALID_ARGS").Errorf("a privacy code is required")
	}

	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(appCfg)

	mgr, _, err := deps.ManagerFactory(appCfg, slog.Default())
	if err != nil {
		return err
	}

	state, err := mgr.LoginPlayer(cmd.Context(), privacyCode)
	if err != nil {
		return err
	}

	if p, ok := state.Identity.Player(); ok {
		cmd.Printf("Logged in as player %s\n", p.DisplayName)
		return nil
	}
	cmd.Println("Logged in")
	return nil
}
