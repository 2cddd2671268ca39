// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/jllopis/actionkb/pkg/core"
)

// HealthChecker reports the knowledge base unhealthy when Verify fails.
type HealthChecker struct {
	kb *KnowledgeBase
}

// NewHealthChecker returns a core.HealthChecker over kb.
func NewHealthChecker(kb *KnowledgeBase) *HealthChecker {
	return &HealthChecker{kb: kb}
}

// Check implements core.HealthChecker.
func (h *HealthChecker) Check(ctx context.Context) core.HealthResult {
	result := core.HealthResult{Component: "kb", LastCheck: time.Now()}
	if err := ctx.Err(); err != nil {
		result.Status = core.HealthUnhealthy
		result.Error = err
		result.Message = "check cancelled"
		return result
	}
	if err := h.kb.Verify(); err != nil {
		result.Status = core.HealthUnhealthy
		result.Error = err
		result.Message = "index invariants violated"
		return result
	}
	result.Status = core.HealthHealthy
	result.Message = fmt.Sprintf("%d active actions", h.kb.Len())
	return result
}
