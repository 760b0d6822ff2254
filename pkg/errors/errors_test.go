// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	ge := New(CodeTimeout, "tool execution timed out", cause)

	if ge.Code != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", ge.Code)
	}
	if ge.Message != "tool execution timed out" {
		t.Errorf("expected message 'tool execution timed out', got %q", ge.Message)
	}
	if ge.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(ge, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContext(t *testing.T) {
	ge := New(CodeToolFailure, "tool failed", nil)
	ge.WithContext("tool", "web_fetch").
		WithContext("args", map[string]interface{}{"url": "https://example.com"})

	if ge.Context["tool"] != "web_fetch" {
		t.Errorf("expected context tool to be 'web_fetch'")
	}
	if ge.Context["args"] == nil {
		t.Errorf("expected context args to be set")
	}
}

func TestWithAttribute(t *testing.T) {
	ge := New(CodeToolFailure, "tool failed", nil)
	ge.WithAttribute("tool_name", "web_fetch").
		WithAttribute("retry_count", "3")

	if ge.Attributes["tool_name"] != "web_fetch" {
		t.Errorf("expected attribute tool_name")
	}
	if ge.Attributes["retry_count"] != "3" {
		t.Errorf("expected attribute retry_count")
	}
}

func TestWithRecoverable(t *testing.T) {
	ge := New(CodeToolFailure, "network error", nil)
	if ge.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}

	ge.WithRecoverable(true)
	if !ge.Recoverable {
		t.Errorf("expected recoverable to be true after WithRecoverable")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ge       *GatewayError
		expected string
	}{
		{
			name:     "with cause",
			ge:       New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			ge:       New(CodeNotFound, "skill not found", nil),
			expected: "[NOT_FOUND] skill not found",
		},
		{
			name:     "plan generation",
			ge:       New(CodePlanGeneration, "plan generation failed", nil),
			expected: "[PLAN_GENERATION_FAILED] plan generation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ge.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAsGatewayError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "already GatewayError",
			err:      New(CodeToolFailure, "failed", nil),
			expected: CodeToolFailure,
		},
		{
			name:     "generic error",
			err:      errors.New("generic error"),
			expected: CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := AsGatewayError(tt.err)
			if tt.expected == "" {
				if ge != nil {
					t.Errorf("expected nil for nil error")
				}
			} else {
				if ge == nil {
					t.Errorf("expected non-nil GatewayError")
				} else if ge.Code != tt.expected {
					t.Errorf("expected %v, got %v", tt.expected, ge.Code)
				}
			}
		})
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{CodeNotFound, 404},
		{CodeInvalidInput, 400},
		{CodeManifestInvalid, 400},
		{CodeTimeout, 408},
		{CodePlanGeneration, 502},
		{CodeIterationCap, 502},
		{CodeInternal, 500},
		{CodeLLMError, 500},
	}
	for _, tt := range tests {
		if got := New(tt.code, "x", nil).StatusCode; got != tt.status {
			t.Errorf("code %s: expected status %d, got %d", tt.code, tt.status, got)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	ge := New(CodeToolFailure, "tool failed", errors.New("network error"))
	ge.WithContext("tool", "web_fetch").
		WithAttribute("retry_count", "1").
		WithRecoverable(true)

	data, err := json.Marshal(ge)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != string(CodeToolFailure) {
		t.Errorf("expected code %s, got %v", CodeToolFailure, decoded["code"])
	}
	if decoded["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}
