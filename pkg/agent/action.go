// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType discriminates the action vocabulary of the execution loop.
type ActionType string

const (
	// ActionAskForSkill requests that a skill body be disclosed before the
	// step continues.
	ActionAskForSkill ActionType = "ask_for_skill"
	// ActionExternalTool delegates to the tool invoker and feeds the result
	// back into the next model call.
	ActionExternalTool ActionType = "external_tool"
	// ActionFinalResponse is terminal for the entire plan.
	ActionFinalResponse ActionType = "final_response"
	// ActionProceed completes the current step and advances to the next.
	ActionProceed ActionType = "proceed"
)

// AgentAction is the tagged variant produced by exactly one model decision.
// Only the fields matching Type are meaningful.
type AgentAction struct {
	Type      ActionType
	SkillName string
	ToolName  string
	Arguments map[string]any
	Content   string
}

func (a AgentAction) String() string {
	switch a.Type {
	case ActionAskForSkill:
		return fmt.Sprintf("ask_for_skill(%s)", a.SkillName)
	case ActionExternalTool:
		return fmt.Sprintf("external_tool(%s)", a.ToolName)
	default:
		return string(a.Type)
	}
}

// actionWire is the JSON shape the model is asked to produce.
type actionWire struct {
	Action    string         `json:"action"`
	SkillName string         `json:"skill_name,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// ParseAction interprets a raw model reply as an AgentAction. A JSON object
// with an "action" key is validated strictly; anything that is not a JSON
// object is treated as an implicit proceed carrying the reply text as the
// step outcome. A JSON object with a missing or unknown action, or one
// lacking the fields its action requires, is a parse error the loop feeds
// back to the model.
func ParseAction(raw string) (AgentAction, error) {
	text := strings.TrimSpace(raw)
	if fenced := stripFence(text); fenced != "" {
		text = fenced
	}

	if !strings.HasPrefix(text, "{") {
		if text == "" {
			return AgentAction{}, fmt.Errorf("empty model reply")
		}
		return AgentAction{Type: ActionProceed, Content: text}, nil
	}

	var wire actionWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return AgentAction{}, fmt.Errorf("malformed action JSON: %w", err)
	}

	switch ActionType(wire.Action) {
	case ActionAskForSkill:
		if wire.SkillName == "" {
			return AgentAction{}, fmt.Errorf("ask_for_skill requires skill_name")
		}
		return AgentAction{Type: ActionAskForSkill, SkillName: wire.SkillName}, nil
	case ActionExternalTool:
		if wire.ToolName == "" {
			return AgentAction{}, fmt.Errorf("external_tool requires tool_name")
		}
		return AgentAction{Type: ActionExternalTool, ToolName: wire.ToolName, Arguments: wire.Arguments}, nil
	case ActionFinalResponse:
		if wire.Content == "" {
			return AgentAction{}, fmt.Errorf("final_response requires content")
		}
		return AgentAction{Type: ActionFinalResponse, Content: wire.Content}, nil
	case ActionProceed:
		return AgentAction{Type: ActionProceed, Content: wire.Content}, nil
	case "":
		return AgentAction{}, fmt.Errorf("action object missing action key")
	default:
		return AgentAction{}, fmt.Errorf("unknown action %q", wire.Action)
	}
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return ""
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
