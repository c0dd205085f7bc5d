// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludora/sessionkit/internal/realtime"
)

// newWatchCmd creates the watch subcommand.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the realtime lobby channel",
		Long: `Resolve the session, open the realtime lobby channel with the
portal-derived credential policy, and print every event until interrupted.
With metrics enabled, also serves the observability endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, defaultDeps())
		},
	}
}

func runWatch(cmd *cobra.Command, deps Deps) error {
	deps = deps.fill()

	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(appCfg)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr, client, err := deps.ManagerFactory(appCfg, logger)
	if err != nil {
		return err
	}

	// Resolve identity first so credentialed websocket dials carry the
	// session cookie established here.
	if _, err := mgr.Initialize(ctx, false); err != nil {
		logger.Warn("session initialization failed, watching anonymously", "error", err)
	}

	if appCfg.Metrics.Enabled {
		obs := deps.ObservabilityServerFactory(appCfg.Metrics.Addr, func() bool {
			return mgr.State().Initialized
		})
		errCh, err := obs.Start()
		if err != nil {
			return err
		}
		go func() {
			if serveErr := <-errCh; serveErr != nil {
				logger.Error("observability server failed", "error", serveErr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
		cmd.Printf("Serving metrics on %s\n", obs.Addr())
	}

	rt, err := deps.RealtimeFactory(appCfg.Realtime, buildResolver(appCfg, client, logger), jarOf(client), logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	for _, event := range []string{realtime.EventConnect, realtime.EventDisconnect, realtime.EventReconnectFailed} {
		rt.Subscribe(event, func(realtime.Envelope) {
			cmd.Printf("[%s] %s\n", time.Now().Format(time.TimeOnly), event)
		})
	}
	rt.Subscribe(realtime.EventLobbyUpdate, func(env realtime.Envelope) {
		cmd.Printf("[%s] %s %s\n", time.Now().Format(time.TimeOnly), env.Type, string(env.Data))
	})

	if err := rt.Connect(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	cmd.Println("Shutting down")
	return nil
}
