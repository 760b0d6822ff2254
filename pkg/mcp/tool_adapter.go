package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skillgate/skillgate/pkg/core"
	"github.com/skillgate/skillgate/pkg/llm"
)

// ToolCaller executes a named MCP tool. The pool-backed caller borrows a
// connection per invocation.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// ToolAdapter presents a remote MCP tool as a core.Tool so the execution
// loop can invoke it without knowing about transports or connection pooling.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
}

// NewToolAdapter wraps an MCP tool definition with the caller that will
// execute it.
func NewToolAdapter(tool mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if tool.Name == "" {
		return nil, errors.New("mcp tool name is required")
	}
	if caller == nil {
		return nil, errors.New("tool caller is required")
	}
	return &ToolAdapter{tool: tool, caller: caller}, nil
}

// Name returns the MCP tool name.
func (t *ToolAdapter) Name() string {
	return t.tool.Name
}

// Call decodes the action arguments, validates them against the tool's input
// schema and executes the tool.
func (t *ToolAdapter) Call(ctx context.Context, input any) (any, error) {
	args, err := decodeArgs(input)
	if err != nil {
		return nil, err
	}

	// A bare string that isn't JSON lands under "input"; if the schema asks
	// for a single different required field, route it there instead.
	if _, ok := input.(string); ok {
		if raw, has := args["input"]; has && len(args) == 1 {
			if field, uniq := singleRequiredField(t.tool); uniq && field != "input" {
				args = map[string]interface{}{field: raw}
			}
		}
	}

	if err := checkRequired(t.tool, args); err != nil {
		return nil, err
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return nil, err
	}
	return resultPayload(result)
}

// ToolDefinition exposes the MCP tool as an LLM function definition for
// providers that accept tool schemas alongside the conversation.
func ToolDefinition(tool mcp.Tool) llm.Tool {
	var params any = tool.InputSchema
	if tool.RawInputSchema != nil {
		params = tool.RawInputSchema
	}
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		},
	}
}

// decodeArgs coerces whatever the model produced into a string-keyed map.
// Models emit arguments as JSON objects, JSON-encoded strings, or bare text.
func decodeArgs(input any) (map[string]interface{}, error) {
	switch value := input.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return value, nil
	case json.RawMessage:
		return unmarshalArgs([]byte(value))
	case []byte:
		return unmarshalArgs(value)
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return map[string]interface{}{}, nil
		}
		if strings.HasPrefix(trimmed, "{") {
			if decoded, err := unmarshalArgs([]byte(trimmed)); err == nil {
				return decoded, nil
			}
		}
		return map[string]interface{}{"input": value}, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("mcp tool args: unsupported type %T", input)
		}
		decoded, err := unmarshalArgs(encoded)
		if err != nil {
			return nil, fmt.Errorf("mcp tool args: %T does not encode to an object", input)
		}
		return decoded, nil
	}
}

func unmarshalArgs(raw []byte) (map[string]interface{}, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("mcp tool args: invalid JSON: %w", err)
	}
	return decoded, nil
}

func checkRequired(tool mcp.Tool, args map[string]interface{}) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("mcp tool args: missing required field %q", key)
		}
	}
	return nil
}

// singleRequiredField reports the schema's only required field, if there is
// exactly one.
func singleRequiredField(tool mcp.Tool) (string, bool) {
	if req := tool.InputSchema.Required; len(req) == 1 {
		return req[0], true
	}
	return "", false
}

// resultPayload unwraps a call result into the value recorded as the step's
// tool output: structured content when present, else the joined text blocks.
func resultPayload(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New("mcp tool result is nil")
	}
	if result.IsError {
		return nil, fmt.Errorf("mcp tool returned error: %s", joinText(result.Content))
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	if text := joinText(result.Content); text != "" {
		return text, nil
	}
	return result, nil
}

func joinText(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ core.Tool = (*ToolAdapter)(nil)
