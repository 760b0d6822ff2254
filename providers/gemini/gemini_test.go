// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"testing"

	"github.com/skillgate/skillgate/pkg/llm"
)

func TestWithModel(t *testing.T) {
	p := &Provider{model: defaultModel}
	WithModel("gemini-1.5-pro")(p)
	if p.model != "gemini-1.5-pro" {
		t.Errorf("model = %s", p.model)
	}
}

func TestToContentsLiftsSystemInstruction(t *testing.T) {
	contents, system := toContents([]llm.Message{
		{Role: llm.RoleSystem, Content: "You are helpful"},
		{Role: llm.RoleUser, Content: "Hello"},
		{Role: llm.RoleAssistant, Content: "Hi there"},
	})

	if system != "You are helpful" {
		t.Errorf("system instruction = %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("contents = %d, want user + model", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %s, %s", contents[0].Role, contents[1].Role)
	}
}

func TestToContentsWrapsPlainToolOutput(t *testing.T) {
	contents, _ := toContents([]llm.Message{
		{Role: llm.RoleTool, Content: "not json", ToolCallID: "get_weather"},
	})
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	fr := contents[0].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "get_weather" {
		t.Fatalf("function response = %+v", fr)
	}
	if fr.Response["result"] != "not json" {
		t.Errorf("response = %+v", fr.Response)
	}
}

func TestToDeclarations(t *testing.T) {
	decls := toDeclarations([]llm.Tool{{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        "get_weather",
			Description: "Get weather for a location",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"location": map[string]interface{}{"type": "string"},
				},
			},
		},
	}})
	if len(decls) != 1 || decls[0].Name != "get_weather" {
		t.Fatalf("declarations = %+v", decls)
	}
	if decls[0].Parameters == nil {
		t.Error("schema lost in conversion")
	}
}

func TestCloseIsNoOp(t *testing.T) {
	p := &Provider{}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
