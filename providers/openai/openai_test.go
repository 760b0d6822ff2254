// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package openai

import (
	"testing"

	"github.com/skillgate/skillgate/pkg/llm"
)

func TestNewDefaults(t *testing.T) {
	p := New()
	if p.model != "gpt-5-mini" {
		t.Errorf("model = %s", p.model)
	}
}

func TestWithModel(t *testing.T) {
	p := New(WithModel("gpt-4-turbo"))
	if p.model != "gpt-4-turbo" {
		t.Errorf("model = %s", p.model)
	}
}

func TestMessageParamRoles(t *testing.T) {
	if m := messageParam(llm.Message{Role: llm.RoleSystem, Content: "You are helpful"}); m.OfSystem == nil {
		t.Error("system message not mapped")
	}
	if m := messageParam(llm.Message{Role: llm.RoleUser, Content: "Hello"}); m.OfUser == nil {
		t.Error("user message not mapped")
	}
	if m := messageParam(llm.Message{Role: llm.RoleAssistant, Content: "Hi there"}); m.OfAssistant == nil {
		t.Error("assistant message not mapped")
	}
	if m := messageParam(llm.Message{Role: llm.RoleTool, Content: "42", ToolCallID: "call_123"}); m.OfTool == nil {
		t.Error("tool message not mapped")
	}
}

func TestMessageParamAssistantToolCalls(t *testing.T) {
	m := messageParam(llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:   "call_123",
			Type: llm.ToolTypeFunction,
			Function: llm.FunctionCall{
				Name:      "get_weather",
				Arguments: `{"location":"Paris"}`,
			},
		}},
	})
	if m.OfAssistant == nil || len(m.OfAssistant.ToolCalls) != 1 {
		t.Fatalf("message = %+v", m)
	}
	if m.OfAssistant.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("tool call = %+v", m.OfAssistant.ToolCalls[0])
	}
}

func TestToolParam(t *testing.T) {
	p := toolParam(llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        "get_weather",
			Description: "Get weather for a location",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"location": map[string]interface{}{"type": "string"},
				},
				"required": []string{"location"},
			},
		},
	})
	if p.Function.Name != "get_weather" {
		t.Errorf("param = %+v", p)
	}
	if _, ok := p.Function.Parameters["properties"]; !ok {
		t.Errorf("schema lost in conversion: %+v", p.Function.Parameters)
	}
}
