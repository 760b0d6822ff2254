// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillgate/skillgate/pkg/core"
	gerrors "github.com/skillgate/skillgate/pkg/errors"
	"github.com/skillgate/skillgate/pkg/llm"
	"github.com/skillgate/skillgate/pkg/planner"
	"github.com/skillgate/skillgate/pkg/resilience"
	"github.com/skillgate/skillgate/pkg/skills"
	"github.com/skillgate/skillgate/pkg/telemetry"
)

// DefaultMaxIterations bounds the model decisions taken within one step.
const DefaultMaxIterations = 5

// StepState tracks one plan step through the loop.
type StepState string

const (
	StatePending               StepState = "pending"
	StateAwaitingModelDecision StepState = "awaiting_model_decision"
	StateDispatching           StepState = "dispatching"
	StateCompleted             StepState = "completed"
	StateFailed                StepState = "failed"
)

// StepResult is the per-step outcome accumulated into the gateway response.
type StepResult struct {
	Index           int       `json:"index"`
	Instruction     string    `json:"instruction"`
	State           StepState `json:"state"`
	Iterations      int       `json:"iterations"`
	Output          string    `json:"output,omitempty"`
	DisclosedSkills []string  `json:"disclosed_skills,omitempty"`
	ToolCalls       int       `json:"tool_calls,omitempty"`
}

// RunResult is the outcome of driving a full plan through the loop.
type RunResult struct {
	Steps       []StepResult
	FinalAnswer string
	// Terminated reports that a FinalResponse ended the plan early.
	Terminated bool
	// Disclosed maps skill name to the disclosed skill, union over the run.
	Disclosed map[string]*skills.Skill
	Usage     llm.Usage
}

// LoopConfig tunes a Loop. Zero values fall back to defaults.
type LoopConfig struct {
	Model         string
	MaxIterations int
	Temperature   float64
	StepTimeout   time.Duration
	LLMRetry      resilience.RetryConfig
}

// Loop drives plan steps through the decide/dispatch state machine. A Loop
// holds no per-request state; every Run call is independent, so one Loop
// serves concurrent requests.
type Loop struct {
	provider llm.Provider
	invoker  core.ToolInvoker
	cfg      LoopConfig
	metrics  *telemetry.GatewayMetrics
	audit    planner.AuditStore
	emitter  core.EventEmitter
	tracer   trace.Tracer
}

const coordinatorPrompt = "You are an execution coordinator working through a plan one step at a time. " +
	"For the current step, reply with JSON only: " +
	`{"action":"ask_for_skill","skill_name":"..."} to read a skill's full instructions, ` +
	`{"action":"external_tool","tool_name":"...","arguments":{...}} to call a tool, ` +
	`{"action":"proceed","content":"..."} when the step is done (content is the step outcome), or ` +
	`{"action":"final_response","content":"..."} when the whole goal is answered and no further steps are needed.`

// NewLoop creates an execution loop. invoker, metrics, audit, and emitter may
// be nil; the corresponding integrations are skipped.
func NewLoop(provider llm.Provider, invoker core.ToolInvoker, cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.LLMRetry.MaxAttempts == 0 {
		cfg.LLMRetry = resilience.DefaultRetryConfig()
	}
	return &Loop{
		provider: provider,
		invoker:  invoker,
		cfg:      cfg,
		emitter:  core.NoopEventEmitter{},
		tracer:   otel.Tracer("skillgate/agent"),
	}
}

// WithMetrics attaches gateway metrics recording.
func (l *Loop) WithMetrics(m *telemetry.GatewayMetrics) *Loop {
	l.metrics = m
	return l
}

// WithAudit attaches an audit store.
func (l *Loop) WithAudit(store planner.AuditStore) *Loop {
	l.audit = store
	return l
}

// WithEmitter attaches a semantic event emitter.
func (l *Loop) WithEmitter(emitter core.EventEmitter) *Loop {
	if emitter != nil {
		l.emitter = emitter
	}
	return l
}

// Run drives every step of plan in index order until a FinalResponse ends the
// plan or all steps complete. On IterationCapExceeded the returned RunResult
// is still populated with the partial results alongside the error. Context
// cancellation stops further dispatch before the next model call.
func (l *Loop) Run(ctx context.Context, plan *planner.ExecutionPlan, requestID string) (*RunResult, error) {
	result := &RunResult{
		Steps:     make([]StepResult, 0, len(plan.Steps)),
		Disclosed: make(map[string]*skills.Skill),
	}

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return result, gerrors.New(gerrors.CodeTimeout, "request cancelled", err).
				WithContext("step_index", step.Index)
		}

		stepResult, err := l.runStep(ctx, plan, step, requestID, result)
		result.Steps = append(result.Steps, stepResult)
		if err != nil {
			return result, err
		}
		if result.Terminated {
			break
		}
	}
	return result, nil
}

func (l *Loop) runStep(ctx context.Context, plan *planner.ExecutionPlan, step planner.PlanStep, requestID string, run *RunResult) (StepResult, error) {
	ctx, span := l.tracer.Start(ctx, "Loop.Step")
	defer span.End()

	sr := StepResult{Index: step.Index, Instruction: step.Instruction, State: StatePending}
	l.emitter.Emit(ctx, core.NewEvent(core.EventStepStarted, "loop", requestID, map[string]any{
		"step_index": step.Index,
	}))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: coordinatorPrompt},
		{Role: llm.RoleUser, Content: stepContext(plan, step, run)},
	}

	for sr.Iterations < l.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			sr.State = StateFailed
			return sr, gerrors.New(gerrors.CodeTimeout, "request cancelled", err).
				WithContext("step_index", step.Index)
		}

		sr.State = StateAwaitingModelDecision
		sr.Iterations++
		resp, err := l.chat(ctx, messages)
		if err != nil {
			sr.State = StateFailed
			return sr, WrapLLMError(err, l.cfg.Model)
		}
		run.Usage.Add(resp.Usage)

		action, err := ParseAction(resp.Content)
		if err != nil {
			// Malformed decisions burn an iteration and are fed back.
			slog.WarnContext(ctx, "loop.action.malformed", "step_index", step.Index, "error", err)
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: "Your reply was not a valid action: " + err.Error() + ". Reply with JSON only."},
			)
			continue
		}

		span.SetAttributes(telemetry.StepAttributes(step.Index, sr.Iterations, l.cfg.MaxIterations, string(sr.State))...)
		sr.State = StateDispatching

		switch action.Type {
		case ActionAskForSkill:
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: l.discloseSkill(ctx, step, action.SkillName, requestID, run, &sr)},
			)

		case ActionExternalTool:
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
				llm.Message{Role: llm.RoleUser, Content: l.dispatchTool(ctx, step, action, requestID)},
			)
			sr.ToolCalls++

		case ActionFinalResponse:
			sr.State = StateCompleted
			sr.Output = action.Content
			run.Terminated = true
			run.FinalAnswer = action.Content
			l.recordAudit(ctx, requestID, step.Index, planner.AuditActionFinalResponse, planner.AuditStatusCompleted, nil, "")
			l.emitStepCompleted(ctx, requestID, sr)
			return sr, nil

		case ActionProceed:
			sr.State = StateCompleted
			sr.Output = action.Content
			l.emitStepCompleted(ctx, requestID, sr)
			if l.metrics != nil {
				l.metrics.RecordStepIterations(ctx, step.Index, sr.Iterations)
			}
			return sr, nil
		}
	}

	sr.State = StateFailed
	err := NewIterationCapError(step.Index, l.cfg.MaxIterations)
	if l.metrics != nil {
		l.metrics.RecordError(ctx, err, "loop")
	}
	l.recordAudit(ctx, requestID, step.Index, planner.AuditActionModelDecision, planner.AuditStatusFailed, nil, err.Error())
	return sr, err
}

// chat performs one model call with retry and optional per-call timeout.
func (l *Loop) chat(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	var resp *llm.ChatResponse
	call := func() error {
		start := time.Now()
		r, err := l.provider.Chat(ctx, llm.ChatRequest{
			Model:       l.cfg.Model,
			Messages:    messages,
			Temperature: l.cfg.Temperature,
		})
		if l.metrics != nil {
			l.metrics.RecordLLMLatency(ctx, float64(time.Since(start).Milliseconds()))
		}
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	err := l.cfg.LLMRetry.Do(ctx, func() error {
		return resilience.WithTimeout(ctx, resilience.TimeoutConfig{Duration: l.cfg.StepTimeout}, call)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// discloseSkill resolves an AskForSkill action and returns the message fed
// back to the model. Unknown skills and repeat requests are observable
// feedback, not errors; each still costs an iteration.
func (l *Loop) discloseSkill(ctx context.Context, step planner.PlanStep, name, requestID string, run *RunResult, sr *StepResult) string {
	var skill *skills.Skill
	for _, m := range step.SelectedSkills {
		if m.Skill.Name == name {
			skill = m.Skill
			break
		}
	}
	if skill == nil {
		return fmt.Sprintf("Skill %q is not attached to this step. Available skills: %s.",
			name, strings.Join(step.SkillNames(), ", "))
	}
	if _, already := run.Disclosed[name]; already {
		return fmt.Sprintf("Skill %q was already disclosed earlier in this request; reuse those instructions.", name)
	}

	run.Disclosed[name] = skill
	sr.DisclosedSkills = append(sr.DisclosedSkills, name)
	if l.metrics != nil {
		l.metrics.RecordSkillDisclosure(ctx, name)
	}
	l.recordAudit(ctx, requestID, step.Index, planner.AuditActionSkillDisclosed, planner.AuditStatusCompleted,
		map[string]any{"skill": name}, "")
	l.emitter.Emit(ctx, core.NewEvent(core.EventSkillDisclosed, "loop", requestID, map[string]any{
		"step_index": step.Index,
		"skill":      name,
	}))
	slog.InfoContext(ctx, "loop.skill.disclosed", "step_index", step.Index, "skill", name)
	return fmt.Sprintf("Full instructions for skill %q:\n\n%s", name, skill.Body)
}

// dispatchTool resolves an ExternalTool action. Failures come back as
// observable text for the next model call, never as a swallowed error.
func (l *Loop) dispatchTool(ctx context.Context, step planner.PlanStep, action AgentAction, requestID string) string {
	if l.invoker == nil {
		return fmt.Sprintf("Tool %q is unavailable: no tools are configured.", action.ToolName)
	}

	start := time.Now()
	var output any
	err := resilience.WithTimeout(ctx, resilience.TimeoutConfig{Duration: l.cfg.StepTimeout}, func() error {
		var callErr error
		output, callErr = l.invoker.Invoke(ctx, action.ToolName, action.Arguments)
		return callErr
	})
	elapsed := float64(time.Since(start).Milliseconds())
	if l.metrics != nil {
		l.metrics.RecordToolLatency(ctx, action.ToolName, elapsed)
	}
	l.emitter.Emit(ctx, core.NewEvent(core.EventToolCalled, "loop", requestID, map[string]any{
		"step_index": step.Index,
		"tool":       action.ToolName,
		"success":    err == nil,
	}))

	if err != nil {
		wrapped := WrapToolError(err, action.ToolName, step.Index)
		if l.metrics != nil {
			l.metrics.RecordError(ctx, wrapped, "tool")
		}
		l.recordAudit(ctx, requestID, step.Index, planner.AuditActionToolCall, planner.AuditStatusFailed,
			map[string]any{"tool": action.ToolName}, err.Error())
		slog.WarnContext(ctx, "loop.tool.failed", "step_index", step.Index, "tool", action.ToolName, "error", err)
		return fmt.Sprintf("Tool %q failed: %v. Decide how to continue.", action.ToolName, err)
	}

	l.recordAudit(ctx, requestID, step.Index, planner.AuditActionToolCall, planner.AuditStatusCompleted,
		map[string]any{"tool": action.ToolName}, "")
	return fmt.Sprintf("Tool %q result:\n%s", action.ToolName, formatToolOutput(output))
}

func (l *Loop) emitStepCompleted(ctx context.Context, requestID string, sr StepResult) {
	l.emitter.Emit(ctx, core.NewEvent(core.EventStepCompleted, "loop", requestID, map[string]any{
		"step_index": sr.Index,
		"iterations": sr.Iterations,
	}))
	slog.InfoContext(ctx, "loop.step.completed",
		"step_index", sr.Index,
		"iterations", sr.Iterations,
		"state", string(sr.State),
	)
}

func (l *Loop) recordAudit(ctx context.Context, requestID string, stepIndex int, action, status string, payload map[string]any, errText string) {
	if l.audit == nil {
		return
	}
	now := time.Now().UTC()
	event := planner.AuditEvent{
		RequestID:  requestID,
		StepIndex:  stepIndex,
		Action:     action,
		Status:     status,
		Payload:    payload,
		Error:      errText,
		StartedAt:  now,
		FinishedAt: now,
	}
	if err := l.audit.Record(ctx, event); err != nil {
		slog.WarnContext(ctx, "loop.audit.record_failed", "error", err)
	}
}

// stepContext renders the user message for the first model call of a step:
// the goal, the step instruction, attached skill headers, and prior outcomes.
func stepContext(plan *planner.ExecutionPlan, step planner.PlanStep, run *RunResult) string {
	type headerView struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	type priorView struct {
		Index  int    `json:"index"`
		Output string `json:"output"`
	}

	headers := make([]headerView, 0, len(step.SelectedSkills))
	for _, m := range step.SelectedSkills {
		headers = append(headers, headerView{Name: m.Skill.Name, Description: m.Skill.Description})
	}
	priors := make([]priorView, 0, len(run.Steps))
	for _, prev := range run.Steps {
		priors = append(priors, priorView{Index: prev.Index, Output: prev.Output})
	}

	payload, _ := json.Marshal(map[string]any{
		"goal":          plan.Goal,
		"step_index":    step.Index,
		"instruction":   step.Instruction,
		"skill_headers": headers,
		"prior_steps":   priors,
	})
	return string(payload)
}

func formatToolOutput(output any) string {
	switch v := output.(type) {
	case nil:
		return "(no output)"
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
