// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillgate/skillgate/pkg/core"
	gerrors "github.com/skillgate/skillgate/pkg/errors"
	"github.com/skillgate/skillgate/pkg/llm"
	"github.com/skillgate/skillgate/pkg/planner"
	"github.com/skillgate/skillgate/pkg/skills"
	"github.com/skillgate/skillgate/pkg/telemetry"
)

// Request is one gateway invocation: a goal plus disclosure preferences.
type Request struct {
	Goal        string
	Constraints []string
	// SkillName pins an explicitly chosen skill to the front of every
	// step's attachments.
	SkillName string
	// IncludeFullSkills opts in to full skill bodies in the result.
	// Disclosure defaults closed.
	IncludeFullSkills bool
}

// FullSkill is a disclosed skill body, returned only on explicit opt-in.
type FullSkill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Body        string `json:"body"`
}

// Result is the assembled gateway response for one request.
type Result struct {
	RequestID string
	// Plan carries step instructions and attached skill names, never bodies.
	Plan *planner.ExecutionPlan
	// SkillHeaders is the deduplicated union of headers referenced across
	// all steps.
	SkillHeaders []skills.Header
	// FullSkills is populated only when the request opted in; it holds the
	// skills actually disclosed during execution.
	FullSkills []FullSkill
	// FinalAnswer holds the FinalResponse content, or a synthesized summary
	// when the plan ran out of steps without one.
	FinalAnswer string
	// Terminated reports that a FinalResponse ended the plan early.
	Terminated bool
	// Failure carries the explicit failure indicator when execution did not
	// finish; empty on success.
	Failure string
	Steps   []StepResult
	Usage   llm.Usage
}

// Gateway is the top-level orchestrator: plan, execute, assemble.
type Gateway struct {
	builder *planner.Builder
	loop    *Loop
	holder  *skills.Holder
	metrics *telemetry.GatewayMetrics
	audit   planner.AuditStore
	emitter core.EventEmitter
	tracer  trace.Tracer
}

// NewGateway wires the orchestrator. metrics and emitter may be nil.
func NewGateway(builder *planner.Builder, loop *Loop, holder *skills.Holder) *Gateway {
	return &Gateway{
		builder: builder,
		loop:    loop,
		holder:  holder,
		emitter: core.NoopEventEmitter{},
		tracer:  otel.Tracer("skillgate/gateway"),
	}
}

// WithMetrics attaches gateway metrics recording.
func (g *Gateway) WithMetrics(m *telemetry.GatewayMetrics) *Gateway {
	g.metrics = m
	return g
}

// WithAudit attaches an audit store recording plan builds. The loop carries
// its own store for step-level actions.
func (g *Gateway) WithAudit(store planner.AuditStore) *Gateway {
	g.audit = store
	return g
}

// WithEmitter attaches a semantic event emitter.
func (g *Gateway) WithEmitter(emitter core.EventEmitter) *Gateway {
	if emitter != nil {
		g.emitter = emitter
	}
	return g
}

// Handle runs one request end to end: build the plan against the current
// registry snapshot, drive the loop across its steps in index order, and
// assemble the result. On IterationCapExceeded the returned Result is still
// populated with partial steps and an explicit failure indicator alongside
// the error; plan generation failures return only the error.
func (g *Gateway) Handle(ctx context.Context, req Request) (*Result, error) {
	requestID := "chatcmpl-" + uuid.NewString()
	ctx = core.WithRunID(ctx, requestID)
	ctx, span := g.tracer.Start(ctx, "Gateway.Handle",
		trace.WithAttributes(telemetry.RequestAttributes(requestID, requestID, "", req.IncludeFullSkills)...))
	defer span.End()

	start := time.Now()
	task := core.NewTask(req.Goal, "gateway")
	task.Start()
	ctx = core.WithTask(ctx, task)
	if g.metrics != nil {
		g.metrics.RecordRequest(ctx)
	}
	g.emitter.Emit(ctx, core.NewEvent(core.EventRequestStarted, "gateway", requestID, map[string]any{
		"task_id":             task.ID,
		"include_full_skills": req.IncludeFullSkills,
	}))
	slog.InfoContext(ctx, "gateway.request.start",
		"request_id", requestID,
		"goal_len", len(req.Goal),
		"pinned_skill", req.SkillName,
	)

	if strings.TrimSpace(req.Goal) == "" {
		err := NewInvalidInputError("goal is required")
		task.Fail(err.Message)
		return nil, err
	}

	// One immutable snapshot per request; admin reloads never affect a
	// request already in flight.
	registry := g.holder.Get()
	if req.SkillName != "" {
		if _, ok := registry.Get(req.SkillName); !ok {
			err := NewNotFoundError("skill", req.SkillName)
			task.Fail(err.Message)
			return nil, err
		}
	}

	buildStart := time.Now().UTC()
	plan, err := g.builder.Build(ctx, req.Goal, req.Constraints, registry, req.SkillName)
	if err != nil {
		g.auditPlanBuild(ctx, requestID, buildStart, 0, err)
		task.Fail(err.Error())
		g.fail(ctx, requestID, err)
		return nil, err
	}
	g.auditPlanBuild(ctx, requestID, buildStart, len(plan.Steps), nil)
	if g.metrics != nil {
		g.metrics.RecordPlanSize(ctx, len(plan.Steps))
	}
	g.emitter.Emit(ctx, core.NewEvent(core.EventPlanBuilt, "gateway", requestID, map[string]any{
		"steps": len(plan.Steps),
	}))

	result := &Result{
		RequestID:    requestID,
		Plan:         plan,
		SkillHeaders: plan.SkillHeaders(),
	}

	run, runErr := g.loop.Run(ctx, plan, requestID)
	result.Steps = run.Steps
	result.Usage = run.Usage
	result.Terminated = run.Terminated
	if req.IncludeFullSkills {
		result.FullSkills = collectFullSkills(plan)
	}

	if runErr != nil {
		result.Failure = gerrors.AsGatewayError(runErr).Message
		task.Fail(result.Failure)
		g.fail(ctx, requestID, runErr)
		return result, runErr
	}

	if run.Terminated {
		result.FinalAnswer = run.FinalAnswer
	} else {
		result.FinalAnswer = synthesizeAnswer(run.Steps)
	}

	task.Complete(result.FinalAnswer)
	g.emitter.Emit(ctx, core.NewEvent(core.EventRequestCompleted, "gateway", requestID, map[string]any{
		"task_id":    task.ID,
		"status":     string(task.Status),
		"steps":      len(run.Steps),
		"terminated": run.Terminated,
	}))
	slog.InfoContext(ctx, "gateway.request.complete",
		"request_id", requestID,
		"steps_run", len(run.Steps),
		"terminated_early", run.Terminated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// auditPlanBuild records the outcome of one plan build. Step-level actions
// are recorded by the loop against the same store.
func (g *Gateway) auditPlanBuild(ctx context.Context, requestID string, started time.Time, steps int, buildErr error) {
	if g.audit == nil {
		return
	}
	event := planner.AuditEvent{
		RequestID:  requestID,
		StepIndex:  -1,
		Action:     planner.AuditActionPlanBuild,
		Status:     planner.AuditStatusCompleted,
		Payload:    map[string]any{"steps": steps},
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if buildErr != nil {
		event.Status = planner.AuditStatusFailed
		event.Error = buildErr.Error()
	}
	if err := g.audit.Record(ctx, event); err != nil {
		slog.WarnContext(ctx, "gateway.audit.record_failed", "error", err)
	}
}

func (g *Gateway) fail(ctx context.Context, requestID string, err error) {
	if g.metrics != nil {
		g.metrics.RecordError(ctx, err, "gateway")
	}
	g.emitter.Emit(ctx, core.NewEvent(core.EventGatewayError, "gateway", requestID, map[string]any{
		"error": err.Error(),
	}))
	slog.ErrorContext(ctx, "gateway.request.failed", "request_id", requestID, "error", err)
}

// collectFullSkills returns the bodies of every skill referenced across the
// plan, deduplicated, in first-reference order. Callers reach this only
// through the explicit opt-in.
func collectFullSkills(plan *planner.ExecutionPlan) []FullSkill {
	seen := make(map[string]struct{})
	var out []FullSkill
	for _, step := range plan.Steps {
		for _, m := range step.SelectedSkills {
			if _, ok := seen[m.Skill.Name]; ok {
				continue
			}
			seen[m.Skill.Name] = struct{}{}
			out = append(out, FullSkill{
				Name:        m.Skill.Name,
				Description: m.Skill.Description,
				Body:        m.Skill.Body,
			})
		}
	}
	return out
}

// synthesizeAnswer builds the fallback answer when the plan completed
// without a FinalResponse: a summary of what each step produced.
func synthesizeAnswer(steps []StepResult) string {
	var b strings.Builder
	b.WriteString("No final response was produced; summary of completed steps:\n")
	for _, step := range steps {
		output := step.Output
		if output == "" {
			output = "(no output)"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", step.Index+1, step.Instruction, output)
	}
	return strings.TrimRight(b.String(), "\n")
}
