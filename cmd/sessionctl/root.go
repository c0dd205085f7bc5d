// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ludora/sessionkit/internal/config"
	"github.com/ludora/sessionkit/internal/logging"
	"github.com/ludora/sessionkit/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile   string
	forceOffline bool
)

// NewRootCmd creates the root command for the sessionctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "Ludora session diagnostics",
		Long: `sessionctl exercises the Ludora session layer from the command line:
resolve the portal context, run the authentication strategy, log in and out,
and watch the realtime lobby channel.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&forceOffline, "offline", false, "treat the network as unreachable")
	registerConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// registerConfigFlags declares the flags that overlay the config file. Flag
// names double as config keys, so defaults must match config.Default.
func registerConfigFlags(fs *pflag.FlagSet) {
	def := config.Default()

	fs.String("api.base_url", def.API.BaseURL, "REST API base URL")
	fs.String("realtime.url", def.Realtime.URL, "realtime websocket URL")
	fs.String("portal.origin", def.Portal.Origin, "origin to classify the portal from")
	fs.String("portal.student_domain", def.Portal.StudentDomain, "student portal domain")
	fs.String("logging.level", def.Logging.Level, "log level (debug, info, warn, error)")
	fs.String("logging.format", def.Logging.Format, "log format (text, json)")
	fs.Bool("metrics.enabled", def.Metrics.Enabled, "serve the observability endpoint")
	fs.String("metrics.addr", def.Metrics.Addr, "observability listen address")
}

// loadConfig resolves the effective configuration for a command: built-in
// defaults, then the config file, then any changed flags. Without --config,
// the XDG config file is used when present.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		path = xdg.ConfigFile()
	}
	return config.Load(path, cmd.Flags())
}

// setupLogging installs the process logger from the loaded config.
func setupLogging(cfg config.Config) {
	logging.SetDefault(cfg.Logging, version)
}
