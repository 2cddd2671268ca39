// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestStatusRank(t *testing.T) {
	if !(HealthUnhealthy.Rank() < HealthDegraded.Rank() && HealthDegraded.Rank() < HealthHealthy.Rank()) {
		t.Fatal("unexpected status ordering")
	}
	if HealthStatus("bogus").Rank() != 0 {
		t.Fatal("unknown status should rank as unhealthy")
	}
}

func TestFunctionHealthChecker(t *testing.T) {
	calls := 0
	checker := NewFunctionHealthChecker(func(ctx context.Context) HealthResult {
		calls++
		return HealthResult{Status: HealthHealthy, Message: "ok"}
	})
	result := checker.Check(context.Background())
	if calls != 1 || result.Status != HealthHealthy {
		t.Fatalf("unexpected result %+v after %d calls", result, calls)
	}
	if result.LastCheck.IsZero() {
		t.Fatal("expected LastCheck to be set by wrapper")
	}
}

func TestRegistryOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []HealthStatus
		want     HealthStatus
	}{
		{"empty", nil, HealthHealthy},
		{"all healthy", []HealthStatus{HealthHealthy, HealthHealthy}, HealthHealthy},
		{"degraded wins over healthy", []HealthStatus{HealthHealthy, HealthDegraded}, HealthDegraded},
		{"unhealthy wins", []HealthStatus{HealthDegraded, HealthUnhealthy, HealthHealthy}, HealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry(0)
			for i, s := range tt.statuses {
				registry.RegisterChecker(string(rune('a'+i)), NewStaticHealthChecker(s, ""))
			}
			results, overall := registry.CheckAll(context.Background())
			if len(results) != len(tt.statuses) {
				t.Fatalf("expected %d results, got %d", len(tt.statuses), len(results))
			}
			if overall != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, overall)
			}
			for i, r := range results {
				if r.Component != string(rune('a'+i)) {
					t.Fatalf("results not in name order: %v", results)
				}
			}
		})
	}
}

func TestRegistryCache(t *testing.T) {
	registry := NewHealthRegistry(time.Minute)
	calls := 0
	registry.RegisterChecker("kb", NewFunctionHealthChecker(func(context.Context) HealthResult {
		calls++
		return HealthResult{Status: HealthHealthy}
	}))
	for i := 0; i < 3; i++ {
		if _, err := registry.Check(context.Background(), "kb"); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected cached result, checker ran %d times", calls)
	}
	registry.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := registry.Check(context.Background(), "kb"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected expired cache to rerun checker, got %d calls", calls)
	}
}

func TestRegistryUnknownComponent(t *testing.T) {
	registry := NewHealthRegistry(0)
	if _, err := registry.Check(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unregistered checker")
	}
}

func TestCheckWithContext(t *testing.T) {
	registry := NewHealthRegistry(0)
	registry.RegisterChecker("slow", NewFunctionHealthChecker(func(ctx context.Context) HealthResult {
		select {
		case <-ctx.Done():
			return HealthResult{Status: HealthUnhealthy, Message: "context timeout"}
		case <-time.After(100 * time.Millisecond):
			return HealthResult{Status: HealthHealthy}
		}
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	result, _ := registry.Check(ctx, "slow")
	if result.Status != HealthUnhealthy {
		t.Fatalf("expected unhealthy due to timeout, got %s", result.Status)
	}
}

func TestGRPCHealthSync(t *testing.T) {
	registry := NewHealthRegistry(0)
	registry.RegisterChecker("kb", NewStaticHealthChecker(HealthHealthy, ""))
	registry.RegisterChecker("audit", NewStaticHealthChecker(HealthUnhealthy, "db closed"))
	g := NewGRPCHealth(registry, nil)

	if overall := g.Sync(context.Background()); overall != HealthUnhealthy {
		t.Fatalf("expected unhealthy overall, got %s", overall)
	}
	for service, want := range map[string]healthpb.HealthCheckResponse_ServingStatus{
		"":      healthpb.HealthCheckResponse_NOT_SERVING,
		"kb":    healthpb.HealthCheckResponse_SERVING,
		"audit": healthpb.HealthCheckResponse_NOT_SERVING,
	} {
		resp, err := g.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("check %q: %v", service, err)
		}
		if resp.GetStatus() != want {
			t.Fatalf("service %q: expected %s, got %s", service, want, resp.GetStatus())
		}
	}
}
