// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package qwen

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skillgate/skillgate/pkg/llm"
)

func TestNewDefaults(t *testing.T) {
	p := New("test-api-key")
	if p.model != "qwen-plus" {
		t.Errorf("model = %s", p.model)
	}
	if p.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %s", p.baseURL)
	}
}

func TestOptions(t *testing.T) {
	p := New("test-key", WithModel("qwen-max"), WithBaseURL("https://custom.api.com/v1"))
	if p.model != "qwen-max" {
		t.Errorf("model = %s", p.model)
	}
	if p.baseURL != "https://custom.api.com/v1" {
		t.Errorf("baseURL = %s", p.baseURL)
	}
}

func TestChatRoundTrip(t *testing.T) {
	var got wireRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer ts.Close()

	p := New("test-key", WithBaseURL(ts.URL))
	resp, err := p.Chat(t.Context(), llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are helpful"},
			{Role: llm.RoleUser, Content: "Hello"},
		},
		MaxTokens: 64,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got.Model != "qwen-plus" {
		t.Errorf("request model = %s", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("request messages = %+v", got.Messages)
	}
	if got.MaxTokens != 64 {
		t.Errorf("request max_tokens = %d", got.MaxTokens)
	}
	if resp.Content != "Hello there!" {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestChatAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth", "code": "401"}}`))
	}))
	defer ts.Close()

	p := New("bad-key", WithBaseURL(ts.URL))
	_, err := p.Chat(t.Context(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected API error")
	}
}

func TestToolsToWire(t *testing.T) {
	wired := toolsToWire([]llm.Tool{{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        "get_weather",
			Description: "Get weather for a location",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"location": map[string]interface{}{"type": "string"},
				},
			},
		},
	}})
	if len(wired) != 1 || wired[0].Type != "function" || wired[0].Function.Name != "get_weather" {
		t.Errorf("wired = %+v", wired)
	}
}
