// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth publishes registry results through the standard gRPC health
// service. The empty service name carries the overall status; every
// component is published under its own name.
type GRPCHealth struct {
	registry *HealthRegistry
	server   *health.Server
	logger   *slog.Logger
}

// NewGRPCHealth returns a publisher for registry.
func NewGRPCHealth(registry *HealthRegistry, logger *slog.Logger) *GRPCHealth {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHealth{registry: registry, server: health.NewServer(), logger: logger}
}

// Register attaches the health service to s.
func (g *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, g.server)
}

// Server returns the underlying health server.
func (g *GRPCHealth) Server() *health.Server { return g.server }

// Sync runs every checker once and publishes the results.
func (g *GRPCHealth) Sync(ctx context.Context) HealthStatus {
	results, overall := g.registry.CheckAll(ctx)
	for _, r := range results {
		g.server.SetServingStatus(r.Component, servingStatus(r.Status))
		if r.Status != HealthHealthy {
			g.logger.Warn("component not healthy", "component", r.Component, "status", r.Status, "message", r.Message, "error", r.Error)
		}
	}
	g.server.SetServingStatus("", servingStatus(overall))
	return overall
}

// Run syncs on every tick until ctx is done, then marks everything as not
// serving.
func (g *GRPCHealth) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	g.Sync(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			g.server.Shutdown()
			return
		case <-ticker.C:
			g.Sync(ctx)
		}
	}
}

// Degraded components still serve.
func servingStatus(status HealthStatus) healthpb.HealthCheckResponse_ServingStatus {
	if status == HealthUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
