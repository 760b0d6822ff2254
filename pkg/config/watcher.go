// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Watcher polls the config file and skill directory for modification-time
// changes and re-runs Load when anything moves. Listeners typically swap the
// skill registry snapshot (see pkg/skills).
type Watcher struct {
	mu        sync.RWMutex
	paths     []string
	interval  time.Duration
	modTimes  map[string]time.Time
	config    *Config
	listeners []func(*Config)
	stopCh    chan struct{}
	doneCh    chan struct{}
	logger    *slog.Logger
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

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher builds a watcher over the given paths and performs the initial
// load. The first path is the config file proper; any further paths, such as
// the skills directory, only trigger change notifications.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		paths:    paths,
		interval: time.Second,
		modTimes: make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, path := range paths {
		if mod, ok := latestModTime(path); ok {
			w.modTimes[path] = mod
		}
	}

	cfg, err := w.load()
	if err != nil {
		return nil, err
	}
	w.config = cfg
	return w, nil
}

// OnChange registers a listener invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start launches the polling goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go w.poll(ctx)
}

// Stop halts polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.changed() {
				w.reload()
			}
		}
	}
}

// changed updates the recorded modification times and reports whether any
// watched path moved forward. Missing paths are skipped, not treated as
// changes, so a transiently absent skills directory doesn't thrash reloads.
func (w *Watcher) changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirty := false
	for _, path := range w.paths {
		mod, ok := latestModTime(path)
		if !ok {
			continue
		}
		last, seen := w.modTimes[path]
		if !seen || mod.After(last) {
			w.modTimes[path] = mod
			dirty = true
		}
	}
	return dirty
}

// latestModTime returns the newest modification time under path. A
// directory's own mtime only moves on direct child add/remove, so edits to
// manifests inside skill directories require walking the subtree.
func latestModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	newest := info.ModTime()
	if !info.IsDir() {
		return newest, true
	}
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	return newest, true
}

func (w *Watcher) reload() {
	w.logger.Info("config file changed, reloading")

	cfg, err := w.load()
	if err != nil {
		// Keep serving the previous config; a half-written file on disk
		// must not take the gateway down.
		w.logger.Error("failed to reload config", "error", err)
		return
	}

	w.mu.Lock()
	w.config = cfg
	listeners := make([]func(*Config), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")

	for _, fn := range listeners {
		fn(cfg)
	}
}

func (w *Watcher) load() (*Config, error) {
	if len(w.paths) == 0 {
		return Load("")
	}
	return Load(w.paths[0])
}

// ReloadableConfig is an atomically swappable Config holder for components
// that want the latest config without subscribing to the watcher.
type ReloadableConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewReloadableConfig wraps an initial config.
func NewReloadableConfig(cfg *Config) *ReloadableConfig {
	return &ReloadableConfig{config: cfg}
}

// Get returns the current configuration.
func (r *ReloadableConfig) Get() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Update atomically replaces the configuration.
func (r *ReloadableConfig) Update(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cfg
}

// LLM returns the model backend section of the current config.
func (r *ReloadableConfig) LLM() LLMConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.LLM
}

// Gateway returns the execution loop section of the current config.
func (r *ReloadableConfig) Gateway() GatewayConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Gateway
}
