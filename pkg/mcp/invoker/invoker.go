// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package invoker routes external-tool actions to the MCP servers that host
// them. Connections are managed by the shared pool; each call borrows a
// client and returns it when done.
package invoker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/skillgate/skillgate/pkg/config"
	"github.com/skillgate/skillgate/pkg/core"
	gerrors "github.com/skillgate/skillgate/pkg/errors"
	"github.com/skillgate/skillgate/pkg/mcp"
	"github.com/skillgate/skillgate/pkg/mcp/pool"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Invoker implements core.ToolInvoker over the adapters discovered at startup.
type Invoker struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
	pool  *pool.Pool
}

// New builds an invoker by registering every configured MCP server with the
// pool and discovering its tools. A server that fails to connect is skipped
// with a warning; the gateway still starts with the remaining tools. On tool
// name collisions the first registration wins.
func New(ctx context.Context, configs []config.ToolConfig) *Invoker {
	inv := &Invoker{
		tools: make(map[string]core.Tool),
		pool:  pool.New(),
	}

	for _, cfg := range configs {
		if err := register(inv.pool, cfg); err != nil {
			slog.WarnContext(ctx, "mcp.server.register_failed", "server", cfg.Name, "error", err)
			continue
		}

		tools, err := inv.discover(ctx, cfg.Name)
		if err != nil {
			slog.WarnContext(ctx, "mcp.server.unreachable", "server", cfg.Name, "error", err)
			_ = inv.pool.Unregister(cfg.Name)
			continue
		}

		for _, tool := range tools {
			adapter, err := mcp.NewToolAdapter(tool, &poolCaller{pool: inv.pool, server: cfg.Name})
			if err != nil {
				slog.WarnContext(ctx, "mcp.tool.adapter_failed", "server", cfg.Name, "tool", tool.Name, "error", err)
				continue
			}
			if _, exists := inv.tools[tool.Name]; exists {
				slog.WarnContext(ctx, "mcp.tool.name_collision", "server", cfg.Name, "tool", tool.Name)
				continue
			}
			inv.tools[tool.Name] = adapter
		}
		slog.InfoContext(ctx, "mcp.server.connected", "server", cfg.Name, "tools", len(tools))
	}

	return inv
}

func register(p *pool.Pool, cfg config.ToolConfig) error {
	switch cfg.Transport {
	case "stdio":
		return p.RegisterStdio(cfg.Name, cfg.Command, cfg.Args)
	case "http", "":
		return p.RegisterHTTP(cfg.Name, cfg.URL)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func (inv *Invoker) discover(ctx context.Context, server string) ([]mcpgo.Tool, error) {
	client, err := inv.pool.Get(ctx, server)
	if err != nil {
		return nil, err
	}
	defer inv.pool.Release(server, client)
	return client.ListTools(ctx)
}

// poolCaller borrows a pooled client for each tool call.
type poolCaller struct {
	pool   *pool.Pool
	server string
}

func (c *poolCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
	client, err := c.pool.Get(ctx, c.server)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(c.server, client)
	return client.CallTool(ctx, name, args)
}

// Names returns the registered tool names, sorted.
func (inv *Invoker) Names() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	names := make([]string, 0, len(inv.tools))
	for name := range inv.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches one tool call.
func (inv *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	inv.mu.RLock()
	tool, ok := inv.tools[name]
	inv.mu.RUnlock()
	if !ok {
		return nil, gerrors.New(gerrors.CodeNotFound, "tool not found", nil).
			WithContext("tool", name)
	}
	return tool.Call(ctx, args)
}

// Register adds a tool directly, mainly for tests and in-process tools.
func (inv *Invoker) Register(tool core.Tool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.tools[tool.Name()] = tool
}

// Stats exposes pool connection counts for diagnostics.
func (inv *Invoker) Stats() pool.PoolStats {
	return inv.pool.Stats()
}

// Close releases every pooled server connection.
func (inv *Invoker) Close() error {
	return inv.pool.Close()
}

var _ core.ToolInvoker = (*Invoker)(nil)
