// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package gemini backs the gateway with Google's Gemini models via the genai
// SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/skillgate/skillgate/pkg/llm"
)

const defaultModel = "gemini-3-flash-preview"

// Provider implements llm.Provider against the Gemini generateContent API.
type Provider struct {
	client *genai.Client
	model  string
}

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the model used when the request doesn't name one.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// New creates a Gemini provider. The SDK reads GOOGLE_API_KEY or
// GEMINI_API_KEY from the environment.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	return newProvider(ctx, nil, opts)
}

// NewWithAPIKey creates a provider with an explicit key.
func NewWithAPIKey(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	return newProvider(ctx, &genai.ClientConfig{APIKey: apiKey}, opts)
}

func newProvider(ctx context.Context, cfg *genai.ClientConfig, opts []Option) (*Provider, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	p := &Provider{client: client, model: defaultModel}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	contents, systemInstruction := toContents(req.Messages)

	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{
			{FunctionDeclarations: toDeclarations(req.Tools)},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}
	return chatResponse(resp), nil
}

// Close is a no-op; the genai client holds no closable resources.
func (p *Provider) Close() error {
	return nil
}

// toContents maps the conversation into Gemini contents, lifting the system
// message out as the system instruction.
func toContents(messages []llm.Message) ([]*genai.Content, string) {
	var systemInstruction string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemInstruction = msg.Content
		case llm.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llm.RoleAssistant:
			content := &genai.Content{Role: "model", Parts: []*genai.Part{}}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]interface{}
				json.Unmarshal([]byte(tc.Function.Arguments), &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: tc.Function.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case llm.RoleTool:
			var result map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
				// Non-JSON tool output still has to travel as an object.
				result = map[string]interface{}{"result": msg.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						// Gemini correlates by function name; ToolCallID
						// carries it through the conversation.
						Name:     msg.ToolCallID,
						Response: result,
					},
				}},
			})
		}
	}
	return contents, systemInstruction
}

// toDeclarations maps function tools onto Gemini declarations.
func toDeclarations(tools []llm.Tool) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		encoded, _ := json.Marshal(tool.Function.Parameters)
		var schema *genai.Schema
		json.Unmarshal(encoded, &schema)

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  schema,
		})
	}
	return declarations
}

// chatResponse flattens the first candidate's parts into text plus tool
// calls.
func chatResponse(resp *genai.GenerateContentResponse) *llm.ChatResponse {
	out := &llm.ChatResponse{}

	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				// No separate call ids in Gemini; the name stands in.
				ID:   part.FunctionCall.Name,
				Type: llm.ToolTypeFunction,
				Function: llm.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		}
	}
	return out
}

var _ llm.Provider = (*Provider)(nil)
