// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/config"
	"github.com/jllopis/actionkb/pkg/core"
	"github.com/jllopis/actionkb/pkg/governance"
	"github.com/jllopis/actionkb/pkg/kb"
	"github.com/jllopis/actionkb/pkg/mcp"
	"github.com/jllopis/actionkb/pkg/telemetry"
)

const healthCacheTTL = 5 * time.Second

// app holds the knowledge base and everything serve wires around it.
type app struct {
	logger     *slog.Logger
	kb         *kb.KnowledgeBase
	metrics    *telemetry.KBMetrics
	audit      kb.AuditStore
	sqlite     *kb.SQLiteAuditStore
	health     *core.HealthRegistry
	grpcHealth *core.GRPCHealth
	mcp        *mcp.Server

	mu     sync.Mutex
	loaded []*action.Entry
}

func newMatcher(cfg config.KBConfig) *kb.DefaultMatcher {
	return kb.NewDefaultMatcher(
		kb.WithSubtypes(cfg.Types),
		kb.WithSymbolTypes(cfg.Symbols),
	)
}

// newApp builds the knowledge base from cfg and loads its definitions.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	metrics, err := telemetry.NewKBMetrics()
	if err != nil {
		return nil, err
	}
	a := &app{
		logger:  logger,
		metrics: metrics,
		health:  core.NewHealthRegistry(healthCacheTTL),
	}
	a.kb = kb.New(
		kb.WithMatcher(newMatcher(cfg.KB)),
		kb.WithLogger(logger),
		kb.WithMetrics(metrics),
	)
	a.health.RegisterChecker("kb", kb.NewHealthChecker(a.kb))

	if cfg.Audit.Enabled {
		if err := a.openAudit(cfg.Audit); err != nil {
			_ = metrics.Close()
			return nil, err
		}
		a.kb.Subscribe(kb.NewAuditRecorder(a.audit, logger))
	}

	entries, err := action.LoadPaths(cfg.KB.Definitions)
	if err != nil {
		a.Close()
		return nil, NewDefinitionError(err)
	}
	added := a.kb.InsertAll(entries)
	a.loaded = entries
	logger.Info("kb.loaded",
		slog.Int("definitions", len(entries)),
		slog.Int("added", added),
		slog.Any("paths", cfg.KB.Definitions),
	)

	a.grpcHealth = core.NewGRPCHealth(a.health, logger)
	a.mcp = mcp.NewServer(a.kb,
		mcp.WithServerLogger(logger),
		mcp.WithVersion(version),
		mcp.WithPolicy(governance.RuleSetFromConfig(cfg.MCP)),
	)
	return a, nil
}

func (a *app) openAudit(cfg config.AuditConfig) error {
	if cfg.DSN == "" {
		a.audit = kb.NewMemoryAuditStore()
		a.health.RegisterChecker("audit", core.NewStaticHealthChecker(core.HealthHealthy, "in-memory audit log"))
		return nil
	}
	store, err := kb.OpenSQLiteAuditStore(cfg.DSN)
	if err != nil {
		return err
	}
	a.sqlite = store
	a.audit = store
	a.health.RegisterChecker("audit", core.NewFunctionHealthChecker(func(ctx context.Context) core.HealthResult {
		if err := store.Ping(ctx); err != nil {
			return core.HealthResult{Status: core.HealthUnhealthy, Message: "audit database unreachable", Error: err}
		}
		return core.HealthResult{Status: core.HealthHealthy, Message: "audit database reachable"}
	}))
	return nil
}

// Reload replaces the entries loaded from the previous definitions with
// those named by cfg. On a load error the knowledge base is left alone.
// Definitions that did not change keep their state and effect order.
func (a *app) Reload(cfg *config.Config) {
	entries, err := action.LoadPaths(cfg.KB.Definitions)
	if err != nil {
		a.logger.Error("kb.reload.error", slog.String("error", err.Error()))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	removed, added := a.kb.Replace(a.loaded, entries)
	a.loaded = entries
	a.logger.Info("kb.reload",
		slog.Int("removed", removed),
		slog.Int("added", added),
		slog.Int("active", a.kb.Len()),
	)
}

// Close releases the audit database and the metric callbacks.
func (a *app) Close() error {
	var errs []error
	if a.sqlite != nil {
		errs = append(errs, a.sqlite.Close())
	}
	if a.metrics != nil {
		errs = append(errs, a.metrics.Close())
	}
	return errors.Join(errs...)
}
