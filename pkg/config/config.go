// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads actionkb settings from defaults, a YAML or JSON file,
// an optional profile overlay, ACTIONKB_ environment variables and --set
// command-line overrides, in that order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ACTIONKB_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	KB        KBConfig        `koanf:"kb"`
	Audit     AuditConfig     `koanf:"audit"`
	MCP       MCPConfig       `koanf:"mcp"`
	Health    HealthConfig    `koanf:"health"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter              string            `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint          string            `koanf:"otlp_endpoint"`
	OTLPInsecure          bool              `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds    int               `koanf:"otlp_timeout_seconds"`
	OTLPHeaders           map[string]string `koanf:"otlp_headers"`
	MetricIntervalSeconds int               `koanf:"metric_interval_seconds"`
}

// KBConfig describes what the knowledge base loads and how it matches.
type KBConfig struct {
	// Definitions are files or directories of action definitions.
	Definitions []string `koanf:"definitions"`
	// Types maps a semantic type to its supertypes.
	Types map[string][]string `koanf:"types"`
	// Symbols types otherwise untyped symbols, e.g. robot1: agent.
	Symbols map[string]string `koanf:"symbols"`
	// Reload re-reads definitions when the config file changes.
	Reload bool `koanf:"reload"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"` // empty keeps events in memory
}

type MCPConfig struct {
	Transport      string `koanf:"transport"` // stdio, http
	Addr           string `koanf:"addr"`
	URL            string `koanf:"url"` // remote endpoint used by client commands
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	// ReadOnly denies every tool that changes the knowledge base.
	ReadOnly bool               `koanf:"read_only"`
	Policies []PolicyRuleConfig `koanf:"policies"`
}

// PolicyRuleConfig is one tool access rule. Tool is a glob over tool names.
type PolicyRuleConfig struct {
	ID     string `koanf:"id"`
	Effect string `koanf:"effect"` // allow, deny
	Kind   string `koanf:"kind"`   // query, mutation
	Tool   string `koanf:"tool"`
	Reason string `koanf:"reason"`
}

type HealthConfig struct {
	GRPCAddr        string `koanf:"grpc_addr"` // empty disables the gRPC health service
	IntervalSeconds int    `koanf:"interval_seconds"`
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":                         "info",
		"log.format":                        "text",
		"telemetry.exporter":                "none",
		"telemetry.otlp_timeout_seconds":    10,
		"telemetry.metric_interval_seconds": 60,
		"audit.enabled":                     false,
		"mcp.transport":                     "stdio",
		"mcp.addr":                          ":8090",
		"mcp.url":                           "http://localhost:8090/mcp",
		"mcp.timeout_seconds":               30,
		"health.interval_seconds":           15,
	}
}

// Load reads defaults, the file at path (if any) and the environment.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile is Load plus the profile overlay next to path
// (config.yaml + dev -> config.dev.yaml) when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI understands --config, --profile (alias --env) and repeated
// --set key=value arguments. Values that parse as JSON keep their JSON type.
func LoadWithCLI(args []string) (*Config, error) {
	opts, err := ParseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(opts.ConfigPath, opts.Profile, opts.Sets)
}

func load(path, profile string, sets map[string]any) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if overlay := profileConfigPath(path, profile); overlay != "" {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load profile %s: %w", overlay, err)
			}
		}
	}

	// ACTIONKB_AUDIT_DSN -> audit.dsn, ACTIONKB_KB_DEFINITIONS=a,b -> kb.definitions
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, value := range sets {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("apply --set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps only the first underscore to a section separator so keys
// like otlp_endpoint survive.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key, value
	}
	key = section + "." + rest
	if key == "kb.definitions" {
		var paths []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		return key, paths
	}
	return key, value
}

// Validate rejects settings the servers cannot act on.
func (c *Config) Validate() error {
	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("mcp.transport must be stdio or http, got %q", c.MCP.Transport)
	}
	switch c.Telemetry.Exporter {
	case "", "stdout", "none":
	case "otlp":
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("unknown telemetry.exporter %q", c.Telemetry.Exporter)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	for i, rule := range c.MCP.Policies {
		switch strings.ToLower(rule.Effect) {
		case "allow", "deny":
		default:
			return fmt.Errorf("mcp.policies[%d].effect must be allow or deny, got %q", i, rule.Effect)
		}
		switch strings.ToLower(rule.Kind) {
		case "", "query", "mutation":
		default:
			return fmt.Errorf("mcp.policies[%d].kind must be query or mutation, got %q", i, rule.Kind)
		}
	}
	return nil
}

// CLIOptions are the configuration flags recognised by LoadWithCLI.
type CLIOptions struct {
	ConfigPath string
	Profile    string
	Sets       map[string]any
}

// ParseCLIOverrides extracts configuration flags from args. Unknown
// arguments are ignored so the same slice can carry command flags.
func ParseCLIOverrides(args []string) (CLIOptions, error) {
	opts := CLIOptions{Sets: map[string]any{}}
	for i := 0; i < len(args); i++ {
		name, value, inline := strings.Cut(args[i], "=")
		switch name {
		case "--config", "--profile", "--env", "--set":
		default:
			continue
		}
		if !inline {
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", name)
			}
			i++
			value = args[i]
		}
		switch name {
		case "--config":
			opts.ConfigPath = value
		case "--profile", "--env":
			opts.Profile = value
		case "--set":
			key, raw, ok := strings.Cut(value, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return opts, fmt.Errorf("--set expects key=value, got %q", value)
			}
			opts.Sets[strings.TrimSpace(key)] = parseSetValue(raw)
		}
	}
	return opts, nil
}

func parseSetValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// profileConfigPath returns the overlay for profile next to base, or ""
// when there is none.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	candidate := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
