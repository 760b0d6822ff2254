// Package mcp wraps the mcp-go client and server with the retry, caching and
// adapter behavior the gateway expects from its tool transport.
package mcp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetries  = 2
	defaultBackoff  = 200 * time.Millisecond
	defaultCacheTTL = 30 * time.Second
)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry configures retry count and the base backoff between attempts.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithToolCacheTTL sets how long tool listings are cached; 0 disables the
// cache.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// Client is an MCP connection with request timeouts, bounded retries and a
// short-lived tool listing cache layered on top of the raw protocol client.
type Client struct {
	raw        client.MCPClient
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	cacheTTL   time.Duration

	mu          sync.Mutex
	toolsCache  []mcp.Tool
	cacheExpiry time.Time
}

// NewClient wraps an already-connected protocol client.
func NewClient(raw client.MCPClient, opts ...ClientOption) *Client {
	c := &Client{
		raw:        raw,
		timeout:    defaultTimeout,
		maxRetries: defaultRetries,
		backoff:    defaultBackoff,
		cacheTTL:   defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientWithStdio launches command as a subprocess and speaks MCP over
// its stdio. env entries are added to the inherited environment.
func NewClientWithStdio(command string, args []string, env map[string]string, opts ...ClientOption) (*Client, error) {
	return NewClientWithStdioProtocol(command, args, env, mcp.LATEST_PROTOCOL_VERSION, opts...)
}

// NewClientWithStdioProtocol is NewClientWithStdio pinned to a protocol
// version.
func NewClientWithStdioProtocol(command string, args []string, env map[string]string, protocolVersion string, opts ...ClientOption) (*Client, error) {
	envPairs := make([]string, 0, len(env))
	for key, value := range env {
		envPairs = append(envPairs, key+"="+value)
	}
	raw, err := client.NewStdioMCPClient(command, envPairs, args...)
	if err != nil {
		return nil, err
	}
	if err := handshake(raw, protocolVersion); err != nil {
		return nil, err
	}
	return NewClient(raw, opts...), nil
}

// NewClientWithStreamableHTTP connects to an MCP server over Streamable HTTP.
func NewClientWithStreamableHTTP(url string, opts ...ClientOption) (*Client, error) {
	return NewClientWithStreamableHTTPProtocol(url, mcp.LATEST_PROTOCOL_VERSION, opts...)
}

// NewClientWithStreamableHTTPProtocol is NewClientWithStreamableHTTP pinned
// to a protocol version.
func NewClientWithStreamableHTTPProtocol(url string, protocolVersion string, opts ...ClientOption) (*Client, error) {
	raw, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, err
	}
	if err := handshake(raw, protocolVersion); err != nil {
		return nil, err
	}
	return NewClient(raw, opts...), nil
}

// handshake starts the transport and runs the MCP initialize exchange.
func handshake(raw *client.Client, protocolVersion string) error {
	if protocolVersion == "" {
		protocolVersion = mcp.LATEST_PROTOCOL_VERSION
	}
	if err := raw.Start(context.Background()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = protocolVersion
	init.Params.ClientInfo = mcp.Implementation{
		Name:    "skillgate-client",
		Version: "0.1.0",
	}
	_, err := raw.Initialize(ctx, init)
	return err
}

// ListTools returns the server's tools, serving from cache within the TTL.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if cached := c.cachedTools(); cached != nil {
		return cached, nil
	}
	resp, err := retry(ctx, c, func(reqCtx context.Context) (*mcp.ListToolsResult, error) {
		return c.raw.ListTools(reqCtx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	c.storeTools(resp.Tools)
	return resp.Tools, nil
}

// CallTool executes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	return retry(ctx, c, func(reqCtx context.Context) (*mcp.CallToolResult, error) {
		return c.raw.CallTool(reqCtx, req)
	})
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.raw.Close()
}

func (c *Client) cachedTools() []mcp.Tool {
	if c.cacheTTL == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.toolsCache) == 0 || time.Now().After(c.cacheExpiry) {
		return nil
	}
	out := make([]mcp.Tool, len(c.toolsCache))
	copy(out, c.toolsCache)
	return out
}

func (c *Client) storeTools(tools []mcp.Tool) {
	if c.cacheTTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsCache = make([]mcp.Tool, len(tools))
	copy(c.toolsCache, tools)
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
}

// retry runs fn under the client's timeout, backing off exponentially between
// attempts. Context cancellation is terminal, never retried.
func retry[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := c.maxRetries + 1
	for i := 0; i < attempts; i++ {
		reqCtx, cancel := c.reqContext(ctx)
		res, err := fn(reqCtx)
		cancel()
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		wait := c.backoff * time.Duration(1<<i)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (c *Client) reqContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
