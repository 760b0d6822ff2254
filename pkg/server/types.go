// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/skillgate/skillgate/pkg/agent"
	"github.com/skillgate/skillgate/pkg/skills"
)

// ChatMessage is one OpenAI-style chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatCompletionRequest is the OpenAI-compatible request body. Gateway
// behavior is steered through Metadata: "include_full_skills" (bool) opts in
// to full skill bodies, "skill_name" (string) pins an explicit skill.
type ChatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Goal extracts the last user message, which drives planning.
func (r *ChatCompletionRequest) Goal() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Constraints collects system message contents in order. They are handed to
// the planner as constraints on the decomposition.
func (r *ChatCompletionRequest) Constraints() []string {
	var out []string
	for _, msg := range r.Messages {
		if msg.Role == "system" && msg.Content != "" {
			out = append(out, msg.Content)
		}
	}
	return out
}

// IncludeFullSkills reports the metadata opt-in for full skill bodies.
func (r *ChatCompletionRequest) IncludeFullSkills() bool {
	v, ok := r.Metadata["include_full_skills"].(bool)
	return ok && v
}

// PinnedSkill returns the explicitly selected skill name, if any.
func (r *ChatCompletionRequest) PinnedSkill() string {
	v, _ := r.Metadata["skill_name"].(string)
	return v
}

// ChatCompletionChoice is one completion alternative.
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// GatewayPlanStep is the disclosed view of one plan step: instruction and
// skill names only, never bodies.
type GatewayPlanStep struct {
	Index       int      `json:"index"`
	Instruction string   `json:"instruction"`
	Skills      []string `json:"skills,omitempty"`
	State       string   `json:"state,omitempty"`
	Output      string   `json:"output,omitempty"`
	Iterations  int      `json:"iterations,omitempty"`
}

// GatewayPlan is the plan payload attached to a chat completion response.
type GatewayPlan struct {
	Goal       string            `json:"goal"`
	Steps      []GatewayPlanStep `json:"steps"`
	Terminated bool              `json:"terminated"`
	Failure    string            `json:"failure,omitempty"`
}

// ChatCompletionResponse is the OpenAI-compatible response extended with the
// gateway payload.
type ChatCompletionResponse struct {
	ID           string                 `json:"id"`
	Object       string                 `json:"object"`
	Created      int64                  `json:"created"`
	Model        string                 `json:"model"`
	Choices      []ChatCompletionChoice `json:"choices"`
	Usage        map[string]int         `json:"usage"`
	GatewayPlan  *GatewayPlan           `json:"gateway_plan,omitempty"`
	SkillHeaders []skills.Header        `json:"skill_headers"`
	FullSkills   map[string]string      `json:"full_skills,omitempty"`
}

// SkillListResponse is the body of GET /v1/skills.
type SkillListResponse struct {
	Count  int             `json:"count"`
	Skills []skills.Header `json:"skills"`
}

// ReloadResponse is the body of POST /admin/skills:reload.
type ReloadResponse struct {
	Loaded   int               `json:"loaded"`
	Rejected []RejectionReport `json:"rejected,omitempty"`
}

// RejectionReport describes one skill excluded during a reload.
type RejectionReport struct {
	Dir    string `json:"dir"`
	Reason string `json:"reason"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the typed error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newGatewayPlan projects an agent.Result onto the wire shape.
func newGatewayPlan(result *agent.Result) *GatewayPlan {
	if result == nil || result.Plan == nil {
		return nil
	}
	plan := &GatewayPlan{
		Goal:       result.Plan.Goal,
		Terminated: result.Terminated,
		Failure:    result.Failure,
		Steps:      make([]GatewayPlanStep, 0, len(result.Plan.Steps)),
	}
	for _, step := range result.Plan.Steps {
		view := GatewayPlanStep{
			Index:       step.Index,
			Instruction: step.Instruction,
			Skills:      step.SkillNames(),
		}
		if step.Index < len(result.Steps) {
			sr := result.Steps[step.Index]
			view.State = string(sr.State)
			view.Output = sr.Output
			view.Iterations = sr.Iterations
		}
		plan.Steps = append(plan.Steps, view)
	}
	return plan
}
