package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes gateway capabilities as an MCP server, so other agents can
// browse and fetch skills over the same protocol the gateway consumes tools
// through.
type Server struct {
	inner *server.MCPServer
}

// NewServer creates an MCP server with the given identity.
func NewServer(name, version string) *Server {
	return &Server{inner: server.NewMCPServer(name, version)}
}

// RegisterTool adds a tool whose handler receives the decoded argument map.
func (s *Server) RegisterTool(name, description string, handler func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error), opts ...mcp.ToolOption) {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	tool := mcp.NewTool(name, opts...)

	s.inner.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return handler(ctx, args)
	})
}

// ServeStdio blocks, serving MCP over stdin/stdout until the stream closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.inner)
}

// TextResult wraps plain text as a successful tool result.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

// ErrorResult wraps an error message as a failed tool result.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: message}},
	}
}
