// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
	if cfg.MCP.Transport != "stdio" || cfg.MCP.Addr != ":8090" {
		t.Errorf("unexpected mcp defaults %+v", cfg.MCP)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected telemetry off by default, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "actionkb.yaml", `
kb:
  definitions: [defs/, extra.json]
  types:
    cup: [container, physobj]
  symbols:
    robot1: agent
audit:
  enabled: true
  dsn: "file:audit.db"
mcp:
  read_only: true
  policies:
    - id: no-removal
      effect: deny
      tool: kb_remove_*
      reason: removals go through review
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.KB.Definitions) != 2 || cfg.KB.Definitions[1] != "extra.json" {
		t.Errorf("unexpected definitions %v", cfg.KB.Definitions)
	}
	if got := cfg.KB.Types["cup"]; len(got) != 2 || got[0] != "container" {
		t.Errorf("unexpected types %v", cfg.KB.Types)
	}
	if cfg.KB.Symbols["robot1"] != "agent" {
		t.Errorf("unexpected symbols %v", cfg.KB.Symbols)
	}
	if !cfg.Audit.Enabled || cfg.Audit.DSN != "file:audit.db" {
		t.Errorf("unexpected audit %+v", cfg.Audit)
	}
	if !cfg.MCP.ReadOnly || len(cfg.MCP.Policies) != 1 {
		t.Fatalf("unexpected mcp policy settings %+v", cfg.MCP)
	}
	if rule := cfg.MCP.Policies[0]; rule.ID != "no-removal" || rule.Tool != "kb_remove_*" || rule.Effect != "deny" {
		t.Errorf("unexpected policy %+v", rule)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ACTIONKB_MCP_TRANSPORT", "http")
	t.Setenv("ACTIONKB_TELEMETRY_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("ACTIONKB_KB_DEFINITIONS", "a.yaml, b/")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MCP.Transport != "http" {
		t.Errorf("expected transport from env, got %s", cfg.MCP.Transport)
	}
	if cfg.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Errorf("expected otlp endpoint from env, got %q", cfg.Telemetry.OTLPEndpoint)
	}
	if len(cfg.KB.Definitions) != 2 || cfg.KB.Definitions[1] != "b/" {
		t.Errorf("unexpected definitions %v", cfg.KB.Definitions)
	}
}

func TestLoadWithProfile(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "config.yaml", "log:\n  level: info\nmcp:\n  addr: \":9000\"\n")
	writeFile(t, dir, "config.dev.yaml", "log:\n  level: debug\n")

	tests := []struct {
		profile   string
		wantLevel string
	}{
		{"", "info"},
		{"dev", "debug"},
		{"staging", "info"},
	}
	for _, tc := range tests {
		t.Run("profile="+tc.profile, func(t *testing.T) {
			cfg, err := LoadWithProfile(base, tc.profile)
			if err != nil {
				t.Fatalf("LoadWithProfile failed: %v", err)
			}
			if cfg.Log.Level != tc.wantLevel {
				t.Errorf("log level: got %s, want %s", cfg.Log.Level, tc.wantLevel)
			}
			if cfg.MCP.Addr != ":9000" {
				t.Errorf("expected base value to survive overlay, got %s", cfg.MCP.Addr)
			}
		})
	}
}

func TestLoadWithCLIOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.json", `{"mcp": {"transport": "stdio"}, "telemetry": {"exporter": "stdout"}}`)
	writeFile(t, dir, "settings.prod.json", `{"log": {"format": "json"}}`)
	t.Setenv("ACTIONKB_MCP_ADDR", ":7000")

	cfg, err := LoadWithCLI([]string{
		"serve",
		"--config=" + path,
		"--env", "prod",
		"--set", "mcp.transport=http",
		"--set", "audit.enabled=true",
		"--set", "telemetry.otlp_timeout_seconds=12",
		"--set", "telemetry.otlp_headers.x-api-key=secret-token",
		"--set", `kb.types={"cup":["physobj"]}`,
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}
	if cfg.MCP.Transport != "http" {
		t.Errorf("expected cli override transport, got %s", cfg.MCP.Transport)
	}
	if cfg.MCP.Addr != ":7000" {
		t.Errorf("expected env addr, got %s", cfg.MCP.Addr)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected profile overlay, got %s", cfg.Log.Format)
	}
	if !cfg.Audit.Enabled {
		t.Error("expected audit.enabled=true")
	}
	if cfg.Telemetry.OTLPTimeoutSeconds != 12 {
		t.Errorf("expected telemetry timeout override, got %d", cfg.Telemetry.OTLPTimeoutSeconds)
	}
	if cfg.Telemetry.OTLPHeaders["x-api-key"] != "secret-token" {
		t.Errorf("unexpected headers %v", cfg.Telemetry.OTLPHeaders)
	}
	if got := cfg.KB.Types["cup"]; len(got) != 1 || got[0] != "physobj" {
		t.Errorf("unexpected types %v", cfg.KB.Types)
	}
}

func TestValidate(t *testing.T) {
	if _, err := LoadWithCLI([]string{"--set", "mcp.transport=carrier"}); err == nil {
		t.Error("expected invalid transport error")
	}
	if _, err := LoadWithCLI([]string{"--set", "telemetry.exporter=otlp"}); err == nil {
		t.Error("expected missing otlp endpoint error")
	}
	if _, err := LoadWithCLI([]string{"--set", "log.format=xml"}); err == nil {
		t.Error("expected invalid log format error")
	}
	if _, err := LoadWithCLI([]string{"--set", `mcp.policies=[{"effect":"maybe"}]`}); err == nil {
		t.Error("expected invalid policy effect error")
	}
	if _, err := LoadWithCLI([]string{"--set", `mcp.policies=[{"effect":"deny","kind":"admin"}]`}); err == nil {
		t.Error("expected invalid policy kind error")
	}
}

func TestParseCLIOverridesErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--config"},
		{"--set"},
		{"--set", "invalid"},
		{"--set", "=value"},
	} {
		if _, err := ParseCLIOverrides(args); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestProfileConfigPath(t *testing.T) {
	dir := t.TempDir()
	dev := writeFile(t, dir, "config.dev.yaml", "log: {}\n")
	base := filepath.Join(dir, "config.yaml")

	tests := []struct {
		name, base, profile, want string
	}{
		{"existing profile", base, "dev", dev},
		{"missing profile", base, "prod", ""},
		{"empty profile", base, "", ""},
		{"empty base", "", "dev", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := profileConfigPath(tc.base, tc.profile); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
