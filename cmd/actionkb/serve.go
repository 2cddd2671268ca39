// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/jllopis/actionkb/pkg/config"
	"github.com/jllopis/actionkb/pkg/telemetry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load action definitions and serve the knowledge base over MCP",
		Long: `Loads the definitions listed in kb.definitions and serves the knowledge base
over MCP on stdio or streamable HTTP (mcp.transport). When health.grpc_addr is
set a gRPC health service reports the knowledge base and audit log status.
With kb.reload the definitions are reloaded whenever the config file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	tc := telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
		OTLPHeaders:        cfg.Telemetry.OTLPHeaders,
		MetricInterval:     time.Duration(cfg.Telemetry.MetricIntervalSeconds) * time.Second,
	}
	// stdout belongs to the MCP stdio transport.
	if cfg.MCP.Transport == "stdio" {
		tc.Writer = os.Stderr
	}
	return tc
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("actionkb", version, telemetryConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry.shutdown.error", slog.String("error", err.Error()))
		}
	}()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Health.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Health.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer := grpc.NewServer()
		a.grpcHealth.Register(grpcServer)
		logger.Info("health.grpc.listen", slog.String("addr", lis.Addr().String()))
		g.Go(func() error { return grpcServer.Serve(lis) })
		g.Go(func() error {
			a.grpcHealth.Run(gctx, time.Duration(cfg.Health.IntervalSeconds)*time.Second)
			grpcServer.GracefulStop()
			return nil
		})
	}

	if cfg.KB.Reload && opts.ConfigPath != "" {
		watcher, err := config.WatchCLI(gctx, opts.configArgs(),
			config.WithWatchLogger(logger),
			config.WithListener(a.Reload))
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	switch cfg.MCP.Transport {
	case "http":
		g.Go(func() error { return a.mcp.ServeStreamableHTTP(gctx, cfg.MCP.Addr) })
	default:
		g.Go(func() error {
			// ServeStdio returns on EOF; take the other servers down with it.
			defer cancel()
			return a.mcp.ServeStdio()
		})
	}

	logger.Info("actionkb.serve",
		slog.String("transport", cfg.MCP.Transport),
		slog.Int("actions", a.kb.Len()),
		slog.Bool("audit", cfg.Audit.Enabled),
	)
	return g.Wait()
}
