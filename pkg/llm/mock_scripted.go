package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedMockProvider plays back a fixed sequence of completions, one per
// Chat call. Tests drive the plan-then-execute loop through it and then
// assert on the recorded requests.
type ScriptedMockProvider struct {
	mu        sync.Mutex
	Responses []string
	// CallCount is the number of Chat calls so far.
	CallCount int
	// Requests holds every request in call order, for prompt assertions.
	Requests []ChatRequest
}

func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	return &ScriptedMockProvider{Responses: responses}
}

// Chat records the request and dequeues the next scripted completion. Running
// past the script is an error so tests catch unexpected extra model calls.
func (s *ScriptedMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	s.Requests = append(s.Requests, req)

	if len(s.Responses) == 0 {
		return nil, errors.New("scripted mock: response script exhausted")
	}
	next := s.Responses[0]
	s.Responses = s.Responses[1:]

	return &ChatResponse{
		Content: next,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}
