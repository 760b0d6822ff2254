// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"testing"

	"github.com/skillgate/skillgate/pkg/config"
	"github.com/skillgate/skillgate/pkg/llm"
)

func TestBuildProviderWrapsWithBreaker(t *testing.T) {
	p, err := buildProvider(config.LLMConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := p.(*llm.ResilientProvider); !ok {
		t.Fatalf("expected resilient wrapper, got %T", p)
	}
}

func TestBuildProviderFailover(t *testing.T) {
	p, err := buildProvider(config.LLMConfig{
		Provider: "openai",
		BaseURL:  "http://127.0.0.1:1", // nothing listens; primary always fails
		Fallback: config.LLMFallbackConfig{Provider: "mock"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Model:    "test",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("expected failover to mock, got %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
}

func TestBuildProviderUnknownPrimary(t *testing.T) {
	if _, err := buildProvider(config.LLMConfig{Provider: "nope"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestBuildProviderUnknownFallback(t *testing.T) {
	_, err := buildProvider(config.LLMConfig{
		Provider: "mock",
		Fallback: config.LLMFallbackConfig{Provider: "nope"},
	})
	if err == nil {
		t.Fatal("expected error for unknown fallback provider")
	}
}
