// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the per-step execution loop and the gateway
// orchestrator that drives it across a full plan.
package agent

import (
	"github.com/skillgate/skillgate/pkg/errors"
)

// WrapLLMError wraps a model-call error with appropriate context.
func WrapLLMError(err error, model string) *errors.GatewayError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeLLMError, "LLM call failed", err).
		WithContext("model", model).
		WithAttribute("llm.model", model).
		WithRecoverable(true)
}

// WrapToolError wraps a tool invocation error with appropriate context.
// Tool failures are recoverable: they are fed back into the next model call
// rather than aborting the request.
func WrapToolError(err error, toolName string, stepIndex int) *errors.GatewayError {
	if err == nil {
		return nil
	}
	return errors.New(errors.CodeToolFailure, "tool invocation failed", err).
		WithContext("tool_name", toolName).
		WithContext("step_index", stepIndex).
		WithAttribute("tool.name", toolName).
		WithRecoverable(true)
}

// NewIterationCapError reports a step that looped past the iteration bound.
// Fatal for the request, not for the process.
func NewIterationCapError(stepIndex, maxIterations int) *errors.GatewayError {
	return errors.New(errors.CodeIterationCap, "step exceeded iteration cap", nil).
		WithContext("step_index", stepIndex).
		WithContext("max_iterations", maxIterations).
		WithRecoverable(false)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *errors.GatewayError {
	return errors.New(errors.CodeInvalidInput, msg, nil).
		WithRecoverable(false)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, name string) *errors.GatewayError {
	return errors.New(errors.CodeNotFound, resource+" not found", nil).
		WithContext("resource", resource).
		WithContext("name", name).
		WithRecoverable(false)
}
