package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockProvider(t *testing.T) {
	p := &MockProvider{Response: "hello"}
	resp, err := p.Chat(context.Background(), ChatRequest{Model: "test"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestScriptedMockProvider(t *testing.T) {
	p := NewScriptedMockProvider("first", "second")

	resp1, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("chat 1: %v", err)
	}
	resp2, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("chat 2: %v", err)
	}
	if resp1.Content != "first" || resp2.Content != "second" {
		t.Fatalf("responses out of order: %q, %q", resp1.Content, resp2.Content)
	}
	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if p.CallCount != 3 {
		t.Fatalf("expected 3 calls, got %d", p.CallCount)
	}
}

func TestOpenAIProviderChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "test-key")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestOllamaProviderChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "pong"},
			"done":              true,
			"eval_count":        3,
			"prompt_eval_count": 4,
		})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL)
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "llama3.2",
		Messages: []Message{{Role: RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "pong" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestUsageAdd(t *testing.T) {
	u := Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	u.Add(Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30})
	if u.PromptTokens != 11 || u.CompletionTokens != 22 || u.TotalTokens != 33 {
		t.Fatalf("unexpected accumulated usage %+v", u)
	}
}
