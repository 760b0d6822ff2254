// Package core defines the shared primitives of the Skillgate runtime:
// the tool contract, request-scoped identifiers, tasks and semantic events.
package core

import "context"

// Tool is a concrete external capability, typically backed by MCP.
// Implementations must be safe for concurrent use across requests.
type Tool interface {
	Name() string
	Call(ctx context.Context, input any) (any, error)
}

// ToolInvoker resolves and invokes external tools by name. It is the
// collaborator the execution loop delegates ExternalTool actions to.
type ToolInvoker interface {
	// Names lists the registered tool names in registration order.
	Names() []string
	// Invoke calls the named tool with the given arguments.
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}
