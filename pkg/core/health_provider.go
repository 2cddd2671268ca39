// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HealthRegistry implements HealthCheckProvider. Results are cached per
// component for the configured TTL.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	cache    map[string]HealthResult
	cacheTTL time.Duration
	now      func() time.Time
}

// NewHealthRegistry creates a registry. A zero TTL disables caching.
func NewHealthRegistry(cacheTTL time.Duration) *HealthRegistry {
	return &HealthRegistry{
		checkers: make(map[string]HealthChecker),
		cache:    make(map[string]HealthResult),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// RegisterChecker registers a health checker for a component, replacing any
// previous one.
func (r *HealthRegistry) RegisterChecker(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
	delete(r.cache, name)
}

// Check checks the health of a specific component.
func (r *HealthRegistry) Check(ctx context.Context, name string) (HealthResult, error) {
	r.mu.RLock()
	checker, exists := r.checkers[name]
	r.mu.RUnlock()
	if !exists {
		return HealthResult{}, fmt.Errorf("checker not registered: %s", name)
	}
	return r.run(ctx, name, checker), nil
}

// CheckAll checks every component in name order. The overall status is the
// worst individual status; an empty registry is healthy.
func (r *HealthRegistry) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	r.mu.RLock()
	names := make([]string, 0, len(r.checkers))
	checkers := make(map[string]HealthChecker, len(r.checkers))
	for name, checker := range r.checkers {
		names = append(names, name)
		checkers[name] = checker
	}
	r.mu.RUnlock()
	sort.Strings(names)

	overall := HealthHealthy
	results := make([]HealthResult, 0, len(names))
	for _, name := range names {
		result := r.run(ctx, name, checkers[name])
		results = append(results, result)
		if result.Status.Rank() < overall.Rank() {
			overall = result.Status
		}
	}
	return results, overall
}

func (r *HealthRegistry) run(ctx context.Context, name string, checker HealthChecker) HealthResult {
	if r.cacheTTL > 0 {
		r.mu.RLock()
		cached, ok := r.cache[name]
		r.mu.RUnlock()
		if ok && r.now().Sub(cached.LastCheck) < r.cacheTTL {
			return cached
		}
	}
	result := checker.Check(ctx)
	result.Component = name
	if result.LastCheck.IsZero() {
		result.LastCheck = r.now()
	}
	if r.cacheTTL > 0 {
		r.mu.Lock()
		r.cache[name] = result
		r.mu.Unlock()
	}
	return result
}

// FunctionHealthChecker wraps a function as a health checker.
type FunctionHealthChecker struct {
	fn func(ctx context.Context) HealthResult
}

// NewFunctionHealthChecker creates a health checker from a function.
func NewFunctionHealthChecker(fn func(ctx context.Context) HealthResult) *FunctionHealthChecker {
	return &FunctionHealthChecker{fn: fn}
}

// Check calls the underlying function.
func (f *FunctionHealthChecker) Check(ctx context.Context) HealthResult {
	result := f.fn(ctx)
	if result.LastCheck.IsZero() {
		result.LastCheck = time.Now()
	}
	return result
}

// StaticHealthChecker always reports the same status.
type StaticHealthChecker struct {
	status  HealthStatus
	message string
}

// NewStaticHealthChecker returns a checker with a constant result.
func NewStaticHealthChecker(status HealthStatus, message string) *StaticHealthChecker {
	return &StaticHealthChecker{status: status, message: message}
}

// Check returns the constant health status.
func (s *StaticHealthChecker) Check(context.Context) HealthResult {
	return HealthResult{Status: s.status, Message: s.message, LastCheck: time.Now()}
}
