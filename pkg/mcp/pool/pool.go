// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool shares MCP client connections across concurrent gateway
// requests. Tool servers are registered once; every request borrows a client
// with Get, hands it back with Release, and the pool handles reference
// counting, health checks and idle cleanup.
//
//	pool := pool.New(
//	    pool.WithMaxConnectionsPerServer(5),
//	    pool.WithHealthCheckInterval(30 * time.Second),
//	)
//
//	pool.RegisterStdio("filesystem", "npx", []string{"-y", "@anthropic/mcp-server-filesystem"})
//	pool.RegisterHTTP("repo-tools", "http://localhost:8080/mcp")
//
//	client, _ := pool.Get(ctx, "repo-tools")
//	defer pool.Release("repo-tools", client)
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skillgate/skillgate/pkg/mcp"
)

var (
	// ErrPoolClosed is returned for any operation after Close.
	ErrPoolClosed = errors.New("mcp pool is closed")

	// ErrServerNotFound is returned when Get names an unregistered server.
	ErrServerNotFound = errors.New("mcp server not found in pool")

	// ErrMaxConnectionsReached is returned when a server is at its
	// connection cap and no existing connection can be shared.
	ErrMaxConnectionsReached = errors.New("maximum connections reached for server")

	// ErrInvalidServerConfig is returned for incomplete registrations.
	ErrInvalidServerConfig = errors.New("invalid server configuration")
)

// ServerType selects the MCP transport.
type ServerType int

const (
	// ServerTypeStdio runs the server as a subprocess.
	ServerTypeStdio ServerType = iota
	// ServerTypeHTTP speaks Streamable HTTP to a running server.
	ServerTypeHTTP
)

// ServerConfig describes one registered MCP server.
type ServerConfig struct {
	// Name is the logical identifier requests use to borrow a client.
	Name string

	// Type selects the transport.
	Type ServerType

	// Command and Args launch stdio servers.
	Command string
	Args    []string

	// URL addresses HTTP servers.
	URL string

	// Env is passed to stdio subprocesses.
	Env map[string]string

	// MaxConnections caps concurrent connections; 0 uses the pool default.
	MaxConnections int

	// ClientOptions apply to every client created for this server.
	ClientOptions []mcp.ClientOption
}

// conn is a pooled client plus the bookkeeping the reaper needs.
type conn struct {
	client  *mcp.Client
	borrows int32
	server  string
	created time.Time
}

// Pool manages shared MCP connections across in-flight requests.
type Pool struct {
	mu      sync.RWMutex
	servers map[string]*ServerConfig
	conns   map[string][]*conn
	closed  atomic.Bool

	maxPerServer        int
	healthCheckInterval time.Duration
	idleTimeout         time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	totalConnections   atomic.Int64
	activeConnections  atomic.Int64
	connectionErrors   atomic.Int64
	healthChecksPassed atomic.Int64
	healthChecksFailed atomic.Int64
}

// PoolOption configures the connection pool.
type PoolOption func(*Pool)

// WithMaxConnectionsPerServer sets the default per-server connection cap.
func WithMaxConnectionsPerServer(max int) PoolOption {
	return func(p *Pool) {
		if max > 0 {
			p.maxPerServer = max
		}
	}
}

// WithHealthCheckInterval sets how often pooled connections are probed.
func WithHealthCheckInterval(interval time.Duration) PoolOption {
	return func(p *Pool) {
		if interval > 0 {
			p.healthCheckInterval = interval
		}
	}
}

// WithIdleTimeout sets how long an unborrowed connection survives.
func WithIdleTimeout(timeout time.Duration) PoolOption {
	return func(p *Pool) {
		if timeout > 0 {
			p.idleTimeout = timeout
		}
	}
}

// New creates a pool and starts its background health checker.
func New(opts ...PoolOption) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		servers:             make(map[string]*ServerConfig),
		conns:               make(map[string][]*conn),
		maxPerServer:        10,
		healthCheckInterval: 30 * time.Second,
		idleTimeout:         5 * time.Minute,
		ctx:                 ctx,
		cancel:              cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.healthLoop()

	return p
}

// RegisterStdio registers a subprocess-backed MCP server.
func (p *Pool) RegisterStdio(name, command string, args []string, opts ...mcp.ClientOption) error {
	if name == "" || command == "" {
		return ErrInvalidServerConfig
	}
	return p.put(&ServerConfig{
		Name:          name,
		Type:          ServerTypeStdio,
		Command:       command,
		Args:          args,
		ClientOptions: opts,
	})
}

// RegisterHTTP registers a Streamable HTTP MCP server.
func (p *Pool) RegisterHTTP(name, url string, opts ...mcp.ClientOption) error {
	if name == "" || url == "" {
		return ErrInvalidServerConfig
	}
	return p.put(&ServerConfig{
		Name:          name,
		Type:          ServerTypeHTTP,
		URL:           url,
		ClientOptions: opts,
	})
}

// Register registers a server from a full ServerConfig.
func (p *Pool) Register(config ServerConfig) error {
	if config.Name == "" {
		return ErrInvalidServerConfig
	}
	if config.Type == ServerTypeStdio && config.Command == "" {
		return ErrInvalidServerConfig
	}
	if config.Type == ServerTypeHTTP && config.URL == "" {
		return ErrInvalidServerConfig
	}
	return p.put(&config)
}

func (p *Pool) put(config *ServerConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.servers[config.Name] = config
	return nil
}

// Unregister drops a server and closes every connection it holds. The
// invoker calls this when discovery finds a server unreachable.
func (p *Pool) Unregister(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	delete(p.servers, name)
	for _, c := range p.conns[name] {
		_ = c.client.Close()
		p.activeConnections.Add(-1)
	}
	delete(p.conns, name)
	return nil
}

// Get borrows a client for the named server, dialing a new connection when
// none exists yet. Every Get must be paired with a Release.
func (p *Pool) Get(ctx context.Context, serverName string) (*mcp.Client, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.Lock()
	config, ok := p.servers[serverName]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverName)
	}

	// Existing connections are shared; MCP clients are safe for concurrent
	// callers, so the first one is always good enough.
	if existing := p.conns[serverName]; len(existing) > 0 {
		c := existing[0]
		atomic.AddInt32(&c.borrows, 1)
		p.mu.Unlock()
		return c.client, nil
	}

	cap := config.MaxConnections
	if cap == 0 {
		cap = p.maxPerServer
	}
	if len(p.conns[serverName]) >= cap {
		p.mu.Unlock()
		return nil, ErrMaxConnectionsReached
	}
	p.mu.Unlock()

	// Dial outside the lock; stdio servers fork a subprocess here.
	client, err := p.dial(ctx, config)
	if err != nil {
		p.connectionErrors.Add(1)
		return nil, err
	}

	c := &conn{
		client:  client,
		borrows: 1,
		server:  serverName,
		created: time.Now(),
	}

	p.mu.Lock()
	p.conns[serverName] = append(p.conns[serverName], c)
	p.mu.Unlock()

	p.totalConnections.Add(1)
	p.activeConnections.Add(1)

	return client, nil
}

// Release returns a borrowed client. The connection stays pooled for reuse;
// the reaper closes it once it has been idle past the timeout.
func (p *Pool) Release(serverName string, client *mcp.Client) {
	p.mu.RLock()
	conns := p.conns[serverName]
	p.mu.RUnlock()

	for _, c := range conns {
		if c.client == client {
			atomic.AddInt32(&c.borrows, -1)
			return
		}
	}
}

// Close shuts down the health checker and every pooled connection.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}

	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, conns := range p.conns {
		for _, c := range conns {
			if err := c.client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
			}
		}
	}
	p.conns = nil
	p.servers = nil

	return errors.Join(errs...)
}

// PoolStats is a point-in-time snapshot of pool counters.
type PoolStats struct {
	RegisteredServers  int
	ActiveConnections  int
	TotalConnections   int
	ConnectionErrors   int
	HealthChecksPassed int
	HealthChecksFailed int
}

// Stats returns current pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	servers := len(p.servers)
	p.mu.RUnlock()

	return PoolStats{
		RegisteredServers:  servers,
		ActiveConnections:  int(p.activeConnections.Load()),
		TotalConnections:   int(p.totalConnections.Load()),
		ConnectionErrors:   int(p.connectionErrors.Load()),
		HealthChecksPassed: int(p.healthChecksPassed.Load()),
		HealthChecksFailed: int(p.healthChecksFailed.Load()),
	}
}

// ListServers returns the registered server names in no particular order.
func (p *Pool) ListServers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.servers))
	for name := range p.servers {
		names = append(names, name)
	}
	return names
}

// ServerInfo returns the registration for a server, if present.
func (p *Pool) ServerInfo(name string) (ServerConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	config, ok := p.servers[name]
	if !ok {
		return ServerConfig{}, false
	}
	return *config, true
}

func (p *Pool) dial(ctx context.Context, config *ServerConfig) (*mcp.Client, error) {
	switch config.Type {
	case ServerTypeStdio:
		return mcp.NewClientWithStdio(config.Command, config.Args, config.Env, config.ClientOptions...)
	case ServerTypeHTTP:
		return mcp.NewClientWithStreamableHTTP(config.URL, config.ClientOptions...)
	default:
		return nil, fmt.Errorf("unknown server type: %d", config.Type)
	}
}

func (p *Pool) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.checkHealth()
		}
	}
}

// checkHealth probes every pooled connection with a tool listing and evicts
// unborrowed connections that fail.
func (p *Pool) checkHealth() {
	p.mu.RLock()
	probe := make([]*conn, 0)
	for _, conns := range p.conns {
		probe = append(probe, conns...)
	}
	p.mu.RUnlock()

	for _, c := range probe {
		ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
		_, err := c.client.ListTools(ctx)
		cancel()

		if err != nil {
			p.healthChecksFailed.Add(1)
			if atomic.LoadInt32(&c.borrows) == 0 {
				p.evict(c)
			}
			continue
		}
		p.healthChecksPassed.Add(1)
	}

	p.reapIdle()
}

func (p *Pool) evict(victim *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.conns[victim.server]
	for i, c := range conns {
		if c == victim {
			_ = c.client.Close()
			p.conns[victim.server] = append(conns[:i], conns[i+1:]...)
			p.activeConnections.Add(-1)
			return
		}
	}
}

// reapIdle closes connections that have sat unborrowed past the idle
// timeout, keeping at least one warm connection per server.
func (p *Pool) reapIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for server, conns := range p.conns {
		kept := conns[:0]
		for _, c := range conns {
			idle := atomic.LoadInt32(&c.borrows) == 0 && now.Sub(c.created) > p.idleTimeout
			if !idle || len(conns) == 1 {
				kept = append(kept, c)
				continue
			}
			_ = c.client.Close()
			p.activeConnections.Add(-1)
		}
		p.conns[server] = kept
	}
}
