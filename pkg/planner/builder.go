// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	gerrors "github.com/skillgate/skillgate/pkg/errors"
	"github.com/skillgate/skillgate/pkg/llm"
	"github.com/skillgate/skillgate/pkg/skills"
	"github.com/skillgate/skillgate/pkg/telemetry"
)

const decompositionPrompt = "You are a planning gateway for an agent framework. " +
	"Decompose the user goal into between %d and %d concrete, ordered steps. " +
	"Each step is one self-contained instruction an agent can execute. " +
	"Return JSON only: an array of step strings, or an object with a \"steps\" key holding that array."

// BuilderConfig tunes a plan builder. Zero values fall back to the package
// defaults.
type BuilderConfig struct {
	Model       string
	MinSteps    int
	MaxSteps    int
	TopK        int
	Temperature float64
}

// Builder turns a goal into a validated ExecutionPlan. It invokes the model
// once per plan and owns no mutable state, so one Builder serves any number
// of concurrent requests.
type Builder struct {
	provider llm.Provider
	cfg      BuilderConfig
	tracer   trace.Tracer
}

// NewBuilder creates a plan builder on top of the given provider.
func NewBuilder(provider llm.Provider, cfg BuilderConfig) *Builder {
	if cfg.MinSteps <= 0 {
		cfg.MinSteps = MinSteps
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = MaxSteps
	}
	if cfg.TopK <= 0 {
		cfg.TopK = skills.DefaultTopK
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	return &Builder{
		provider: provider,
		cfg:      cfg,
		tracer:   otel.Tracer("skillgate/planner"),
	}
}

// Build decomposes goal into an ExecutionPlan of MinSteps..MaxSteps steps and
// attaches up to TopK skills from reg to each step. When pinned names a skill
// in the registry it is attached first on every step. An unusable
// decomposition is a PLAN_GENERATION_FAILED error; an empty registry is only
// a warning and yields a plan without skill attachments.
func (b *Builder) Build(ctx context.Context, goal string, constraints []string, reg *skills.Registry, pinned string) (*ExecutionPlan, error) {
	ctx, span := b.tracer.Start(ctx, "Planner.Build")
	defer span.End()

	if strings.TrimSpace(goal) == "" {
		return nil, gerrors.New(gerrors.CodeInvalidInput, "goal is empty", nil)
	}
	if reg.Len() == 0 {
		slog.WarnContext(ctx, "planner.registry.empty", "goal_len", len(goal))
	}

	userContent := goal
	if len(constraints) > 0 {
		userContent += "\n\nConstraints:\n- " + strings.Join(constraints, "\n- ")
	}

	resp, err := b.provider.Chat(ctx, llm.ChatRequest{
		Model: b.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(decompositionPrompt, b.cfg.MinSteps, b.cfg.MaxSteps)},
			{Role: llm.RoleUser, Content: userContent},
		},
		Temperature: b.cfg.Temperature,
	})
	if err != nil {
		return nil, gerrors.New(gerrors.CodeLLMError, "plan decomposition call failed", err)
	}

	instructions, err := parseSteps(resp.Content)
	if err != nil {
		return nil, gerrors.New(gerrors.CodePlanGeneration, "unparseable decomposition", err).
			WithContext("raw_len", len(resp.Content))
	}
	instructions = normalizeSteps(instructions, b.cfg.MaxSteps)
	if len(instructions) < b.cfg.MinSteps {
		return nil, gerrors.New(gerrors.CodePlanGeneration,
			fmt.Sprintf("decomposition yielded %d usable steps, need at least %d", len(instructions), b.cfg.MinSteps), nil)
	}

	plan := &ExecutionPlan{Goal: goal, Steps: make([]PlanStep, len(instructions))}
	for i, instruction := range instructions {
		plan.Steps[i] = PlanStep{
			Index:          i,
			Instruction:    instruction,
			SelectedSkills: skills.TopK(instruction, reg, b.cfg.TopK, pinned),
		}
	}
	if err := plan.Validate(); err != nil {
		return nil, gerrors.New(gerrors.CodePlanGeneration, "normalized plan failed validation", err)
	}

	headers := plan.SkillHeaders()
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	span.SetAttributes(telemetry.PlanAttributes(len(plan.Steps), names)...)
	slog.InfoContext(ctx, "planner.build.complete",
		"steps", len(plan.Steps),
		"skills_attached", len(names),
	)
	return plan, nil
}

// parseSteps extracts step instructions from a model reply. Accepts a bare
// JSON array of strings or an object with a "steps" array, with or without a
// markdown code fence around it.
func parseSteps(raw string) ([]string, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, fmt.Errorf("empty decomposition")
	}

	var steps []string
	if err := json.Unmarshal([]byte(text), &steps); err == nil {
		return steps, nil
	}

	var wrapped struct {
		Steps []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Steps != nil {
		return wrapped.Steps, nil
	}
	return nil, fmt.Errorf("reply is neither a JSON array nor a steps object")
}

// normalizeSteps trims, drops empties, and clamps to max by truncation.
func normalizeSteps(steps []string, max int) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
