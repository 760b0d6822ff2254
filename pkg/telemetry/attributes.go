// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for gateway telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Request attributes
	AttrRequestID     = "skillgate.request.id"
	AttrRequestRunID  = "skillgate.request.run_id"
	AttrRequestModel  = "skillgate.request.model"
	AttrRequestGoal   = "skillgate.request.goal"
	AttrFullSkills    = "skillgate.request.include_full_skills"

	// Plan attributes
	AttrPlanSteps     = "skillgate.plan.steps"
	AttrPlanGoal      = "skillgate.plan.goal"
	AttrPlanSkills    = "skillgate.plan.skill_names"

	// Step attributes
	AttrStepIndex      = "skillgate.step.index"
	AttrStepIteration  = "skillgate.step.iteration"
	AttrStepMaxIter    = "skillgate.step.max_iterations"
	AttrStepState      = "skillgate.step.state"
	AttrStepAction     = "skillgate.step.action"

	// Skill attributes
	AttrSkillName     = "skillgate.skill.name"
	AttrSkillScore    = "skillgate.skill.score"
	AttrSkillsLoaded  = "skillgate.skills.loaded"
	AttrSkillsRejected = "skillgate.skills.rejected"

	// Tool attributes
	AttrToolName       = "skillgate.tool.name"
	AttrToolCallID     = "skillgate.tool.call_id"
	AttrToolDurationMs = "skillgate.tool.duration_ms"
	AttrToolSuccess    = "skillgate.tool.success"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
)

// RequestAttributes returns common attributes for request spans.
func RequestAttributes(requestID, runID, model string, includeFullSkills bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrRequestRunID, runID),
		attribute.Bool(AttrFullSkills, includeFullSkills),
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrRequestModel, model))
	}
	return attrs
}

// PlanAttributes returns attributes for plan build spans.
func PlanAttributes(stepCount int, skillNames []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrPlanSteps, stepCount),
	}
	if len(skillNames) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrPlanSkills, skillNames))
	}
	return attrs
}

// StepAttributes returns attributes for per-step execution spans.
func StepAttributes(index, iteration, maxIterations int, state string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrStepIndex, index),
		attribute.Int(AttrStepMaxIter, maxIterations),
	}
	if iteration > 0 {
		attrs = append(attrs, attribute.Int(AttrStepIteration, iteration))
	}
	if state != "" {
		attrs = append(attrs, attribute.String(AttrStepState, state))
	}
	return attrs
}

// SkillAttributes returns attributes for skill disclosure spans.
func SkillAttributes(name string, score float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSkillName, name),
	}
	if score > 0 {
		attrs = append(attrs, attribute.Float64(AttrSkillScore, score))
	}
	return attrs
}

// RegistryAttributes returns attributes for registry load spans.
func RegistryAttributes(loaded, rejected int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrSkillsLoaded, loaded),
		attribute.Int(AttrSkillsRejected, rejected),
	}
}

// ToolCallAttributes returns attributes for tool invocation spans.
func ToolCallAttributes(name, callID string, durationMs float64, success bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
	if callID != "" {
		attrs = append(attrs, attribute.String(AttrToolCallID, callID))
	}
	return attrs
}

// LLMAttributes returns attributes for model call spans.
func LLMAttributes(model, provider string, messageCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, messageCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes for model call spans.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrLLMTokensInput, inputTokens),
		attribute.Int(AttrLLMTokensOutput, outputTokens),
		attribute.Float64(AttrLLMDurationMs, durationMs),
	}
}
