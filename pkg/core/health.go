// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package core holds the health check contracts shared by the knowledge base
// and the servers that expose it.
package core

import (
	"context"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	// HealthHealthy indicates the component is fully operational.
	HealthHealthy HealthStatus = "HEALTHY"

	// HealthDegraded indicates the component is serving with reduced capacity.
	HealthDegraded HealthStatus = "DEGRADED"

	// HealthUnhealthy indicates the component is not operational.
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// Rank orders statuses from worst (0) to best (2).
func (s HealthStatus) Rank() int {
	switch s {
	case HealthHealthy:
		return 2
	case HealthDegraded:
		return 1
	default:
		return 0
	}
}

// HealthResult represents the result of a health check.
type HealthResult struct {
	Status    HealthStatus `json:"status"`
	Component string       `json:"component"`
	Message   string       `json:"message,omitempty"`
	LastCheck time.Time    `json:"last_check"`
	Error     error        `json:"-"`
}

// HealthChecker checks the health of a component.
type HealthChecker interface {
	// Check returns the current health status of the component.
	// The context can be used to implement timeouts.
	Check(ctx context.Context) HealthResult
}

// HealthCheckProvider aggregates health checkers by component name.
type HealthCheckProvider interface {
	RegisterChecker(name string, checker HealthChecker)
	CheckAll(ctx context.Context) ([]HealthResult, HealthStatus)
	Check(ctx context.Context, name string) (HealthResult, error)
}
