// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Skillgate.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Skillgate errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeManifestInvalid indicates a skill manifest failed validation.
	CodeManifestInvalid ErrorCode = "MANIFEST_INVALID"

	// CodePlanGeneration indicates the model produced an unusable decomposition.
	CodePlanGeneration ErrorCode = "PLAN_GENERATION_FAILED"

	// CodeIterationCap indicates a step looped past its iteration bound.
	CodeIterationCap ErrorCode = "ITERATION_CAP_EXCEEDED"

	// CodeToolFailure indicates an external tool invocation failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeContextLost indicates context was lost (e.g. cancellation mid-retry).
	CodeContextLost ErrorCode = "CONTEXT_LOST"
)

// GatewayError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type GatewayError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
	StatusCode  int // For HTTP responses
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *GatewayError) MarshalJSON() ([]byte, error) {
	type Alias GatewayError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new GatewayError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *GatewayError {
	return &GatewayError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *GatewayError) WithContext(key string, value interface{}) *GatewayError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *GatewayError) WithAttribute(key, value string) *GatewayError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *GatewayError) WithRecoverable(recoverable bool) *GatewayError {
	e.Recoverable = recoverable
	return e
}

// AsGatewayError attempts to convert an error to a GatewayError.
// Returns the error as GatewayError if it is one, or wraps it otherwise.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*GatewayError); ok {
		return ge
	}
	// Wrap unknown error as internal
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *GatewayError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput, CodeManifestInvalid:
		return 400
	case CodeTimeout:
		return 408
	case CodePlanGeneration, CodeIterationCap:
		return 502
	default:
		return 500
	}
}
