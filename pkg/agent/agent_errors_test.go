// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"testing"

	gerrors "github.com/skillgate/skillgate/pkg/errors"
)

func TestWrapLLMError(t *testing.T) {
	if WrapLLMError(nil, "m") != nil {
		t.Fatal("nil error must stay nil")
	}
	wrapped := WrapLLMError(errors.New("boom"), "llama3")
	if wrapped.Code != gerrors.CodeLLMError {
		t.Errorf("code = %s", wrapped.Code)
	}
	if !wrapped.Recoverable {
		t.Error("LLM errors are recoverable")
	}
	if wrapped.Context["model"] != "llama3" {
		t.Errorf("context = %v", wrapped.Context)
	}
}

func TestWrapToolError(t *testing.T) {
	wrapped := WrapToolError(errors.New("refused"), "search", 2)
	if wrapped.Code != gerrors.CodeToolFailure {
		t.Errorf("code = %s", wrapped.Code)
	}
	if !wrapped.Recoverable {
		t.Error("tool failures are fed back, hence recoverable")
	}
	if wrapped.Context["step_index"] != 2 {
		t.Errorf("context = %v", wrapped.Context)
	}
}

func TestNewIterationCapError(t *testing.T) {
	err := NewIterationCapError(1, 5)
	if err.Code != gerrors.CodeIterationCap {
		t.Errorf("code = %s", err.Code)
	}
	if err.Recoverable {
		t.Error("iteration cap is fatal for the request")
	}
}
