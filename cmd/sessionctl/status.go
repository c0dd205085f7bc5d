// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// SessionStatus holds the resolved session information for output.
type SessionStatus struct {
	Portal          string `json:"portal"`
	Policy          string `json:"credential_policy"`
	AccessMode      string `json:"access_mode,omitempty"`
	AuthType        string `json:"auth_type"`
	Authenticated   bool   `json:"authenticated"`
	DisplayName     string `json:"display_name,omitempty"`
	NeedsOnboarding bool   `json:"needs_onboarding,omitempty"`
	Maintenance     bool   `json:"maintenance_mode,omitempty"`
	Error           string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Resolve the portal context and run the authentication strategy",
		Long: `Resolve the portal context for the configured origin, execute the
authentication strategy against the API, and report the resulting session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg, defaultDeps())
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig, deps Deps) error {
	deps = deps.fill()

	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(appCfg)

	mgr, client, err := deps.ManagerFactory(appCfg, slog.Default())
	if err != nil {
		return err
	}

	status := SessionStatus{}
	state, err := mgr.Initialize(cmd.Context(), false)
	if err != nil {
		status.Error = err.Error()
	}

	status.AuthType = string(state.AuthType())
	status.Authenticated = state.Authenticated()
	if u, ok := state.Identity.User(); ok {
		status.DisplayName = u.DisplayName
		status.NeedsOnboarding = mgr.NeedsOnboarding()
	}
	if p, ok := state.Identity.Player(); ok {
		status.DisplayName = p.DisplayName
	}
	if state.Settings != nil {
		status.AccessMode = state.Settings.StudentsAccessMode
		status.Maintenance = state.Settings.MaintenanceMode
	}

	// The manager resolved the portal context internally; re-resolve here to
	// show the operator how this origin was classified.
	pc := buildResolver(appCfg, client, slog.Default()).Resolve(cmd.Context())
	status.Portal = string(pc.Portal)
	status.Policy = string(pc.Policy)

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// formatStatusJSON renders the status as indented JSON.
func formatStatusJSON(status SessionStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatStatusTable renders the status as an aligned key/value table.
func formatStatusTable(status SessionStatus) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "PORTAL\t%s\n", status.Portal)
	fmt.Fprintf(w, "POLICY\t%s\n", status.Policy)
	if status.AccessMode != "" {
		fmt.Fprintf(w, "ACCESS MODE\t%s\n", status.AccessMode)
	}
	fmt.Fprintf(w, "AUTH TYPE\t%s\n", status.AuthType)
	fmt.Fprintf(w, "AUTHENTICATED\t%t\n", status.Authenticated)
	if status.DisplayName != "" {
		fmt.Fprintf(w, "DISPLAY NAME\t%s\n", status.DisplayName)
	}
	if status.NeedsOnboarding {
		fmt.Fprintf(w, "ONBOARDING\tpending\n")
	}
	if status.Maintenance {
		fmt.Fprintf(w, "MAINTENANCE\tactive\n")
	}
	if status.Error != "" {
		fmt.Fprintf(w, "ERROR\t%s\n", status.Error)
	}

	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
