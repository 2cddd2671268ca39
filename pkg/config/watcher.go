// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Loader produces a fresh Config on every call.
type Loader func() (*Config, error)

// Watcher polls configuration files and reloads when any of them changes.
// A failed reload keeps the previous configuration.
type Watcher struct {
	paths    []string
	load     Loader
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	seen      map[string]fingerprint
	config    *Config
	listeners []func(*Config)

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// fingerprint identifies a version of a file without reading it.
type fingerprint struct {
	mod  time.Time
	size int64
}

func stat(path string) (fingerprint, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{mod: info.ModTime(), size: info.Size()}, true
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for reload records.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLoader replaces the default loader, which reads the first path.
func WithLoader(load Loader) WatcherOption {
	return func(w *Watcher) {
		if load != nil {
			w.load = load
		}
	}
}

// WithListener registers fn before polling starts, so no reload can run
// ahead of it. Use it with WatchCLI, which starts the watcher itself.
func WithListener(fn func(*Config)) WatcherOption {
	return func(w *Watcher) {
		if fn != nil {
			w.listeners = append(w.listeners, fn)
		}
	}
}

// NewWatcher runs the loader once and remembers the state of paths.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		paths:    paths,
		interval: time.Second,
		logger:   slog.Default(),
		seen:     make(map[string]fingerprint, len(paths)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.load = func() (*Config, error) {
		if len(paths) == 0 {
			return Load("")
		}
		return Load(paths[0])
	}
	for _, opt := range opts {
		opt(w)
	}

	w.changed()
	cfg, err := w.load()
	if err != nil {
		return nil, err
	}
	w.config = cfg
	return w, nil
}

// OnChange registers fn to run after every successful reload. Reloads that
// finish before the call are not replayed.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start polls in a goroutine until ctx is done or Stop is called. Only the
// first call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

// Stop ends polling and waits for the goroutine to exit. It is safe to call
// more than once, and on a watcher that was never started.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started.Load() {
		<-w.done
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			if w.changed() {
				w.reload()
			}
		}
	}
}

// changed records the current fingerprint of every path and reports
// whether any differs from the last one seen. Missing files are skipped.
func (w *Watcher) changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := false
	for _, path := range w.paths {
		fp, ok := stat(path)
		if !ok {
			continue
		}
		if w.seen[path] != fp {
			w.seen[path] = fp
			changed = true
		}
	}
	return changed
}

func (w *Watcher) reload() {
	cfg, err := w.load()
	if err != nil {
		w.logger.Error("config.reload.failed", slog.String("error", err.Error()))
		return
	}

	w.mu.Lock()
	w.config = cfg
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()

	w.logger.Info("config.reloaded", slog.Any("paths", w.paths))
	for _, fn := range listeners {
		fn(cfg)
	}
}

// WatchCLI builds a watcher over the files named by the CLI arguments,
// reloading with LoadWithCLI so --set overrides survive a reload.
func WatchCLI(ctx context.Context, args []string, opts ...WatcherOption) (*Watcher, error) {
	cli, err := ParseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	var paths []string
	if cli.ConfigPath != "" {
		paths = append(paths, cli.ConfigPath)
		if overlay := profileConfigPath(cli.ConfigPath, cli.Profile); overlay != "" {
			paths = append(paths, overlay)
		}
	}
	opts = append(opts, WithLoader(func() (*Config, error) { return LoadWithCLI(args) }))
	w, err := NewWatcher(paths, opts...)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return w, nil
}
