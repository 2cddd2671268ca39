// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/actionkb/pkg/resilience"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetries  = 2
	defaultBackoff  = 200 * time.Millisecond
	defaultCacheTTL = 30 * time.Second
	clientName      = "actionkb-client"
)

// ClientOption customizes the client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry configures how many times a transport failure is retried and
// the initial backoff, which doubles on every attempt.
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

// WithToolCacheTTL sets how long ListTools results are reused. 0 disables caching.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.tools.ttl = ttl
		}
	}
}

// WithProtocolVersion sets the MCP protocol version sent on initialize.
func WithProtocolVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.protocolVersion = version
		}
	}
}

// WithCircuitBreaker stops calls to an endpoint that keeps failing. Only
// transport failures count; tool errors are results.
func WithCircuitBreaker(b *resilience.Breaker) ClientOption {
	return func(c *Client) {
		c.breaker = b
	}
}

// Client talks to a knowledge base served over MCP. Transport failures are
// retried with exponential backoff; tool errors are not.
type Client struct {
	mcpClient       client.MCPClient
	timeout         time.Duration
	maxRetries      int
	backoff         time.Duration
	protocolVersion string
	breaker         *resilience.Breaker
	tools           toolCache
}

type toolCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	tools   []mcp.Tool
	expires time.Time
}

func (tc *toolCache) get(now time.Time) []mcp.Tool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.ttl == 0 || now.After(tc.expires) {
		return nil
	}
	return tc.tools
}

func (tc *toolCache) put(tools []mcp.Tool, now time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.ttl == 0 {
		return
	}
	tc.tools = append([]mcp.Tool(nil), tools...)
	tc.expires = now.Add(tc.ttl)
}

// NewClient wraps an already initialized MCP client.
func NewClient(c client.MCPClient, opts ...ClientOption) *Client {
	out := &Client{
		mcpClient:       c,
		timeout:         defaultTimeout,
		maxRetries:      defaultRetries,
		backoff:         defaultBackoff,
		protocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		tools:           toolCache{ttl: defaultCacheTTL},
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// NewClientWithStdio starts command and connects to it over stdio.
func NewClientWithStdio(command string, args []string, opts ...ClientOption) (*Client, error) {
	// The subprocess is running once NewStdioMCPClient returns.
	transport, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, unavailable("start stdio server", err)
	}
	return connect(transport, opts)
}

// NewClientWithStreamableHTTP connects to a knowledge base served over
// streamable HTTP at url.
func NewClientWithStreamableHTTP(url string, opts ...ClientOption) (*Client, error) {
	transport, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, unavailable("create http client", err)
	}
	if err := transport.Start(context.Background()); err != nil {
		return nil, unavailable("start http client", err).WithContext("url", url)
	}
	return connect(transport, opts)
}

func connect(transport *client.Client, opts []ClientOption) (*Client, error) {
	c := NewClient(transport, opts...)
	ctx, cancel := c.withTimeout(context.Background())
	defer cancel()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = c.protocolVersion
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: defaultVersion}
	if _, err := transport.Initialize(ctx, req); err != nil {
		_ = transport.Close()
		return nil, unavailable("initialize", err)
	}
	return c, nil
}

// ListTools returns the tools the server offers, from cache while it is fresh.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if cached := c.tools.get(time.Now()); cached != nil {
		return cached, nil
	}
	resp, err := withRetry(ctx, c, func(ctx context.Context) (*mcp.ListToolsResult, error) {
		return c.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	c.tools.put(resp.Tools, time.Now())
	return resp.Tools, nil
}

// CallTool executes a tool and returns its raw result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return withRetry(ctx, c, func(ctx context.Context) (*mcp.CallToolResult, error) {
		return c.mcpClient.CallTool(ctx, req)
	})
}

// Close closes the connection and, for stdio, stops the subprocess.
func (c *Client) Close() error {
	return c.mcpClient.Close()
}

// withRetry runs op until it succeeds, fails with a context error or runs
// out of attempts. With a breaker, every attempt first asks it for permission.
func withRetry[T any](ctx context.Context, c *Client, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff<<(attempt-1)); err != nil {
				return zero, err
			}
		}
		if c.breaker != nil {
			if err := c.breaker.Allow(); err != nil {
				return zero, err
			}
		}
		reqCtx, cancel := c.withTimeout(ctx)
		res, err := op(reqCtx)
		cancel()
		if c.breaker != nil {
			c.breaker.Record(err)
		}
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
