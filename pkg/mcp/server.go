// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes a knowledge base as MCP tools and provides a typed
// client for knowledge bases served that way.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
	"github.com/jllopis/actionkb/pkg/governance"
	"github.com/jllopis/actionkb/pkg/kb"
	"github.com/jllopis/actionkb/pkg/telemetry"
)

const (
	serverName     = "actionkb"
	defaultVersion = "0.1.0"
	shutdownGrace  = 5 * time.Second
)

// ServerOption customizes the MCP server.
type ServerOption func(*Server)

// WithServerLogger sets the logger used for tool call records.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for tool call spans.
func WithTracer(tracer trace.Tracer) ServerOption {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithVersion sets the server version reported during initialization.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// WithPolicy sets the engine that decides which tool calls are served.
func WithPolicy(policy governance.PolicyEngine) ServerOption {
	return func(s *Server) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// Server serves a knowledge base over MCP.
type Server struct {
	kb        *kb.KnowledgeBase
	mcpServer *server.MCPServer
	tracer    trace.Tracer
	policy    governance.PolicyEngine
	logger    *slog.Logger
	version   string
}

// NewServer creates an MCP server with every knowledge base tool registered.
func NewServer(k *kb.KnowledgeBase, opts ...ServerOption) *Server {
	s := &Server{
		kb:      k,
		tracer:  otel.Tracer("actionkb/mcp"),
		policy:  governance.NewRuleSet(nil),
		logger:  slog.Default(),
		version: defaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "mcp"))
	s.mcpServer = server.NewMCPServer(serverName, s.version, server.WithToolCapabilities(false))
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on standard input and output until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

// Handler returns the streamable HTTP transport as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, server.NewStreamableHTTPServer(s.mcpServer, server.WithEndpointPath(EndpointPath)))
	return mux
}

// ServeStreamableHTTP serves on addr until ctx is done.
func (s *Server) ServeStreamableHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("mcp.http.listen", slog.String("addr", addr), slog.String("path", EndpointPath))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// toolFunc returns the JSON payload for a successful call.
type toolFunc func(ctx context.Context, args map[string]any) (any, error)

func (s *Server) addTool(tool mcp.Tool, fn toolFunc) {
	name := tool.Name
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			args = map[string]any{}
		}

		ctx, span := s.tracer.Start(ctx, "MCP.Tool.Call")
		defer span.End()

		payload, err := s.authorize(ctx, name)
		if err == nil {
			payload, err = fn(ctx, args)
		}
		if err != nil {
			ke := kberrors.AsKBError(err)
			span.SetAttributes(telemetry.ToolAttributes(name, false, string(ke.Code))...)
			span.SetStatus(codes.Error, ke.Message)
			s.logger.Warn("mcp.tool.error",
				slog.String("tool", name),
				slog.String("error", err.Error()),
				slog.String("error_code", string(ke.Code)),
			)
			return errorResult(ke), nil
		}
		span.SetAttributes(telemetry.ToolAttributes(name, true, "")...)

		data, err := json.Marshal(payload)
		if err != nil {
			return errorResult(kberrors.New(kberrors.CodeInternal, "encode result", err)), nil
		}
		s.logger.Debug("mcp.tool.complete", slog.String("tool", name))
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) authorize(ctx context.Context, name string) (any, error) {
	decision := s.policy.Evaluate(ctx, governance.ToolCall{Kind: toolKind(name), Name: name})
	if decision.Allowed {
		return nil, nil
	}
	reason := decision.Reason
	if reason == "" {
		reason = "denied by policy"
	}
	return nil, kberrors.New(kberrors.CodeForbidden, reason, nil).
		WithContext("tool", name).
		WithContext("rule_id", decision.RuleID)
}

// errorResult carries the error as JSON so clients can restore its code.
func errorResult(ke *kberrors.KBError) *mcp.CallToolResult {
	data, err := json.Marshal(toolError{Code: string(ke.Code), Message: ke.Message, Context: ke.Context})
	if err != nil {
		return mcp.NewToolResultError(ke.Error())
	}
	return mcp.NewToolResultError(string(data))
}

type toolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}
