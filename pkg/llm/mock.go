// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
)

// MockProvider returns a canned response. ChatFunc, when set, takes over the
// whole call and Response/Err are ignored.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	resp := &ChatResponse{Content: m.Response}
	resp.Usage = Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}
	return resp, nil
}

// FailingMockProvider fails every call.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return nil, fmt.Errorf("mock error")
}
