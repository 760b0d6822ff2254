// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skillgate/skillgate/pkg/agent"
	"github.com/skillgate/skillgate/pkg/config"
	"github.com/skillgate/skillgate/pkg/llm"
	"github.com/skillgate/skillgate/pkg/mcp/invoker"
	"github.com/skillgate/skillgate/pkg/planner"
	"github.com/skillgate/skillgate/pkg/resilience"
	"github.com/skillgate/skillgate/pkg/server"
	"github.com/skillgate/skillgate/pkg/skills"
	"github.com/skillgate/skillgate/pkg/telemetry"
)

func runServe(ctx context.Context, global globalFlags, cfg *config.Config) error {
	shutdown, err := telemetry.InitWithConfig("skillgate", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	slog.SetDefault(telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format))

	reg, rejections, err := skills.Load(cfg.Skills.Dir)
	if err != nil {
		return fmt.Errorf("load skills: %w", err)
	}
	for _, rej := range rejections {
		slog.Warn("skill rejected", "dir", rej.Dir, "reason", rej.Reason)
	}
	slog.Info("skills loaded", "dir", cfg.Skills.Dir, "count", reg.Len())
	holder := skills.NewHolder(reg)

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}

	tools := invoker.New(ctx, cfg.Tools)
	defer tools.Close()

	metrics, err := telemetry.NewGatewayMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	stepTimeout, err := time.ParseDuration(cfg.Gateway.StepTimeout)
	if err != nil {
		return fmt.Errorf("invalid gateway.step_timeout %q: %w", cfg.Gateway.StepTimeout, err)
	}

	builder := planner.NewBuilder(provider, planner.BuilderConfig{
		Model:    cfg.LLM.Model,
		MinSteps: cfg.Gateway.PlanMinSteps,
		MaxSteps: cfg.Gateway.PlanMaxSteps,
	})
	loop := agent.NewLoop(provider, tools, agent.LoopConfig{
		Model:         cfg.LLM.Model,
		MaxIterations: cfg.Gateway.MaxIterations,
		StepTimeout:   stepTimeout,
	}).WithMetrics(metrics)

	var auditStore planner.AuditStore
	if cfg.Audit.Enabled {
		db, err := sql.Open("sqlite", cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer db.Close()
		auditStore, err = planner.NewSQLiteAuditStore(db)
		if err != nil {
			return fmt.Errorf("init audit store: %w", err)
		}
		loop = loop.WithAudit(auditStore)
		slog.Info("audit store enabled", "path", cfg.Audit.DBPath)
	}

	gateway := agent.NewGateway(builder, loop, holder).WithMetrics(metrics)
	if auditStore != nil {
		gateway = gateway.WithAudit(auditStore)
	}

	// live carries the most recently loaded config; the watcher swaps it so
	// the admin reload endpoint follows a changed skills.dir.
	live := config.NewReloadableConfig(cfg)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(gateway, holder, func() string { return live.Get().Skills.Dir }).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The watcher polls the config file and the skills root. On change the
	// registry is swapped; requests in flight keep their snapshot.
	if global.ConfigPath != "" {
		watcher, err := config.NewWatcher([]string{global.ConfigPath, cfg.Skills.Dir})
		if err != nil {
			return fmt.Errorf("init config watcher: %w", err)
		}
		watcher.OnChange(func(next *config.Config) {
			live.Update(next)
			rejected, err := holder.Reload(next.Skills.Dir)
			if err != nil {
				slog.Error("skill reload failed", "dir", next.Skills.Dir, "error", err)
				return
			}
			slog.Info("skills reloaded", "dir", next.Skills.Dir, "rejected", len(rejected))
		})
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(sctx)
}

// buildProvider builds the configured model provider behind a circuit
// breaker, with failover to llm.fallback when one is configured. Builder and
// loop share the wrapped provider.
func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	primary, err := newProvider(cfg.Provider, cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	var secondary llm.Provider
	if cfg.Fallback.Provider != "" {
		secondary, err = newProvider(cfg.Fallback.Provider, cfg.Fallback.BaseURL, cfg.Fallback.APIKey)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
		slog.Info("llm failover enabled", "primary", cfg.Provider, "fallback", cfg.Fallback.Provider)
	}
	return llm.NewResilientProvider(primary, secondary, resilience.CircuitBreakerConfig{Name: "llm"}), nil
}

// newProvider builds one bare model provider. "mock" is kept for local smoke
// testing without a model server.
func newProvider(name, baseURL, apiKey string) (llm.Provider, error) {
	switch name {
	case "ollama":
		return llm.NewOllama(baseURL), nil
	case "openai":
		return llm.NewOpenAI(baseURL, apiKey), nil
	case "mock":
		return &llm.MockProvider{Response: "mock response"}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
