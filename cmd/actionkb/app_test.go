// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jllopis/actionkb/pkg/action"
	"github.com/jllopis/actionkb/pkg/config"
	"github.com/jllopis/actionkb/pkg/core"
	"github.com/jllopis/actionkb/pkg/fol"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := writeDefinitions(t, t.TempDir(), "actions.yaml", definitions)
	return &config.Config{
		KB: config.KBConfig{
			Definitions: []string{path},
			Types:       map[string][]string{"cup": {"physobj"}},
		},
	}
}

func mustPredicate(t *testing.T, text string) fol.Predicate {
	t.Helper()
	p, err := fol.Parse(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return p
}

func TestNewAppLoadsDefinitions(t *testing.T) {
	a, err := newApp(testConfig(t), quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 2, a.kb.Len())
	assert.True(t, a.kb.Exists("pickUp"))
	assert.True(t, a.kb.ActionExists(mustPredicate(t, "holding(robot1,mug)")))
	assert.Len(t, a.kb.ActionsBySignature(mustPredicate(t, "pickUp(robot1,mug:cup)")), 1, "cup is a physobj")
	assert.Empty(t, a.kb.ActionsBySignature(mustPredicate(t, "pickUp(robot1,room:location)")))
}

func TestNewAppRejectsMissingDefinitions(t *testing.T) {
	cfg := testConfig(t)
	cfg.KB.Definitions = append(cfg.KB.Definitions, "/does/not/exist.yaml")
	_, err := newApp(cfg, quietLogger())
	require.Error(t, err)
}

func TestAppReload(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	path := cfg.KB.Definitions[0]
	require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - type: place
    primitive: true
    roles:
      - {name: "?actor", type: agent}
      - {name: "?obj", type: physobj}
    effects:
      - predicate: "on(?obj,table)"
`), 0o644))
	a.Reload(cfg)

	assert.Equal(t, 1, a.kb.Len())
	assert.True(t, a.kb.Exists("place"))
	assert.False(t, a.kb.Exists("pickUp"))
	require.NoError(t, a.kb.Verify())

	require.NoError(t, os.WriteFile(path, []byte("actions:\n  - primitive: true\n"), 0o644))
	a.Reload(cfg)
	assert.True(t, a.kb.Exists("place"), "a failed reload keeps the previous entries")
}

func effectOrder(t *testing.T, a *app, goal string) []string {
	t.Helper()
	var out []string
	for _, e := range a.kb.ActionsByEffect(nil, mustPredicate(t, goal)) {
		out = append(out, e.Type())
	}
	return out
}

func TestAppReloadKeepsUnchangedDefinitions(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	learned := action.NewBuilder("grab").Primitive(true).
		Input("?actor", "agent").Input("?obj", "physobj").
		Postcondition("holding(?actor,?obj)").
		MustBuild()
	require.True(t, a.kb.Insert(learned))
	fetch, ok := a.kb.Action("fetch")
	require.True(t, ok)
	require.True(t, a.kb.Disable(fetch))
	assert.Equal(t, []string{"grab", "pickUp"}, effectOrder(t, a, "holding(robot1,mug)"))

	a.Reload(cfg)
	assert.Equal(t, []string{"grab", "pickUp"}, effectOrder(t, a, "holding(robot1,mug)"),
		"reloading an unchanged file must not reorder effects")
	assert.Len(t, a.kb.DisabledActions(), 1, "unchanged definitions keep their disabled state")
	require.NoError(t, a.kb.Verify())

	path := cfg.KB.Definitions[0]
	require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - type: pickUp
    primitive: true
    roles:
      - {name: "?actor", type: agent}
      - {name: "?obj", type: physobj}
    effects:
      - predicate: "holding(?actor,?obj)"
  - type: fetch
    description: fetch from anywhere
    roles:
      - {name: "?actor", type: agent}
      - {name: "?obj", type: physobj}
      - {name: "?from", kind: local, type: location}
    effects:
      - predicate: "holding(?actor,?obj)"
`), 0o644))
	a.Reload(cfg)

	assert.Equal(t, []string{"fetch", "grab", "pickUp"}, effectOrder(t, a, "holding(robot1,mug)"),
		"a changed definition is inserted again")
	assert.Empty(t, a.kb.DisabledActions())
	fetch, ok = a.kb.Action("fetch")
	require.True(t, ok)
	assert.Equal(t, "fetch from anywhere", fetch.Description())
	require.NoError(t, a.kb.Verify())
}

func TestAppHealth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = true
	a, err := newApp(cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	results, overall := a.health.CheckAll(context.Background())
	assert.Equal(t, core.HealthHealthy, overall)
	assert.Len(t, results, 2)

	assert.Equal(t, core.HealthHealthy, a.grpcHealth.Sync(context.Background()))
	resp, err := a.grpcHealth.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: "kb"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestTelemetryConfigRoutesStdioExportsToStderr(t *testing.T) {
	cfg := &config.Config{
		MCP:       config.MCPConfig{Transport: "stdio"},
		Telemetry: config.TelemetryConfig{Exporter: "stdout", MetricIntervalSeconds: 30},
	}
	tc := telemetryConfig(cfg)
	assert.Equal(t, os.Stderr, tc.Writer)
	assert.Equal(t, "30s", tc.MetricInterval.String())

	cfg.MCP.Transport = "http"
	assert.Nil(t, telemetryConfig(cfg).Writer)
}

func TestConfigArgs(t *testing.T) {
	opts := &rootOptions{ConfigPath: "kb.yaml", Profile: "dev", Sets: []string{"a=1", "b=2"}}
	assert.Equal(t, []string{"--config", "kb.yaml", "--profile", "dev", "--set", "a=1", "--set", "b=2"}, opts.configArgs())
	assert.Empty(t, (&rootOptions{}).configArgs())
}
