// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// touch rewrites path and pushes its mod time forward so polling sees it.
func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestWatcherDetectsChanges(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: info\n")

	watcher, err := NewWatcher([]string{path}, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	changes := make(chan *Config, 1)
	watcher.OnChange(func(cfg *Config) { changes <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	if watcher.Config().Log.Level != "info" {
		t.Fatalf("unexpected initial level %q", watcher.Config().Log.Level)
	}

	touch(t, path, "log:\n  level: debug\nkb:\n  definitions: [actions.yaml]\n")

	select {
	case cfg := <-changes:
		if cfg.Log.Level != "debug" {
			t.Errorf("expected debug after reload, got %q", cfg.Log.Level)
		}
		if len(cfg.KB.Definitions) != 1 {
			t.Errorf("expected reloaded definitions, got %v", cfg.KB.Definitions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	if watcher.Config().Log.Level != "debug" {
		t.Errorf("Config() not updated")
	}
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "mcp:\n  transport: stdio\n")

	var calls atomic.Int32
	watcher, err := NewWatcher([]string{path},
		WithWatchInterval(20*time.Millisecond),
		WithLoader(func() (*Config, error) {
			calls.Add(1)
			return Load(path)
		}),
	)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	notified := make(chan struct{}, 1)
	watcher.OnChange(func(*Config) { notified <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	touch(t, path, "mcp:\n  transport: pigeon\n")

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatal("loader was not called again")
	}
	select {
	case <-notified:
		t.Fatal("listeners must not run on a failed reload")
	case <-time.After(50 * time.Millisecond):
	}
	if watcher.Config().MCP.Transport != "stdio" {
		t.Errorf("expected previous config kept, got %q", watcher.Config().MCP.Transport)
	}
}

func TestWatcherStops(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log: {}\n")
	watcher, err := NewWatcher([]string{path}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	watcher.Start(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	idle, err := NewWatcher([]string{path})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	idle.Stop()
}

func TestWatchCLIKeepsOverrides(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "config.yaml", "log:\n  level: info\n")
	dev := writeFile(t, dir, "config.dev.yaml", "log:\n  format: json\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan *Config, 1)
	watcher, err := WatchCLI(ctx, []string{"--config", base, "--profile", "dev", "--set", "mcp.addr=:9999"},
		WithWatchInterval(20*time.Millisecond),
		WithListener(func(cfg *Config) { changes <- cfg }))
	if err != nil {
		t.Fatalf("WatchCLI: %v", err)
	}
	defer watcher.Stop()

	if got := watcher.Config(); got.Log.Format != "json" || got.MCP.Addr != ":9999" {
		t.Fatalf("unexpected initial config %+v", got)
	}

	touch(t, dev, "log:\n  format: json\n  level: warn\n")

	select {
	case cfg := <-changes:
		if cfg.Log.Level != "warn" {
			t.Errorf("expected profile change applied, got %q", cfg.Log.Level)
		}
		if cfg.MCP.Addr != ":9999" {
			t.Errorf("expected --set override to survive reload, got %q", cfg.MCP.Addr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for profile reload")
	}
}

func TestWatchCLIListenerSeesFirstChange(t *testing.T) {
	base := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: info\n")

	changes := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, err := WatchCLI(ctx, []string{"--config", base},
		WithWatchInterval(time.Millisecond),
		WithListener(func(cfg *Config) {
			select {
			case changes <- cfg:
			default:
			}
		}))
	if err != nil {
		t.Fatalf("WatchCLI: %v", err)
	}
	defer watcher.Stop()

	// The change lands while the watcher is already polling.
	touch(t, base, "log:\n  level: error\n")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Log.Level == "error" {
				return
			}
		case <-timeout:
			t.Fatal("listener missed the reload")
		}
	}
}
