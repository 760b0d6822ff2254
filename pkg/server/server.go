// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the gateway over an OpenAI-compatible HTTP surface.
// The chat completion endpoint accepts the standard request body and returns
// the standard response extended with the gateway plan and skill payloads.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillgate/skillgate/pkg/agent"
	gerrors "github.com/skillgate/skillgate/pkg/errors"
	"github.com/skillgate/skillgate/pkg/skills"
)

const maxRequestBody = 1 << 20

// Server routes HTTP requests to the gateway and the skill registry.
type Server struct {
	gateway   *agent.Gateway
	holder    *skills.Holder
	skillsDir func() string
}

// New creates a Server. skillsDir yields the root re-scanned on reload; a
// func so config reloads that move the skills directory take effect.
func New(gateway *agent.Gateway, holder *skills.Holder, skillsDir func() string) *Server {
	return &Server{gateway: gateway, holder: holder, skillsDir: skillsDir}
}

// Handler returns the route table. Callers own the http.Server wrapping it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/skills", s.handleListSkills)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /admin/skills:reload", s.handleReload)
	return mux
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req ChatCompletionRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, gerrors.New(gerrors.CodeInvalidInput, "request body is not valid JSON", err))
		return
	}
	if req.Stream {
		writeError(w, gerrors.New(gerrors.CodeInvalidInput, "streaming responses are not supported", nil))
		return
	}

	result, err := s.gateway.Handle(r.Context(), agent.Request{
		Goal:              req.Goal(),
		Constraints:       req.Constraints(),
		SkillName:         req.PinnedSkill(),
		IncludeFullSkills: req.IncludeFullSkills(),
	})
	if err != nil && result == nil {
		writeError(w, err)
		return
	}
	// A failed run that still carries a result (iteration cap) is returned
	// with its partial plan rather than discarded.
	writeJSON(w, http.StatusOK, newChatCompletionResponse(req.Model, result))
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	reg := s.holder.Get()
	writeJSON(w, http.StatusOK, SkillListResponse{
		Count:  reg.Len(),
		Skills: reg.Headers(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	rejections, err := s.holder.Reload(s.skillsDir())
	if err != nil {
		writeError(w, gerrors.New(gerrors.CodeInternal, "skill reload failed", err))
		return
	}
	resp := ReloadResponse{Loaded: s.holder.Get().Len()}
	for _, rej := range rejections {
		resp.Rejected = append(resp.Rejected, RejectionReport{Dir: rej.Dir, Reason: rej.Reason})
	}
	slog.InfoContext(r.Context(), "server.skills.reloaded",
		"loaded", resp.Loaded,
		"rejected", len(resp.Rejected),
	)
	writeJSON(w, http.StatusOK, resp)
}

// newChatCompletionResponse maps a gateway result onto the wire shape. The
// assistant message carries the final answer, or the failure message when the
// run ended in an error.
func newChatCompletionResponse(model string, result *agent.Result) *ChatCompletionResponse {
	message := ChatMessage{Role: "assistant", Content: result.FinalAnswer}
	finishReason := "stop"
	if result.Failure != "" {
		message.Content = result.Failure
		finishReason = "error"
	}
	resp := &ChatCompletionResponse{
		ID:      result.RequestID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChatCompletionChoice{{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		}},
		Usage: map[string]int{
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
			"total_tokens":      result.Usage.TotalTokens,
		},
		GatewayPlan:  newGatewayPlan(result),
		SkillHeaders: result.SkillHeaders,
	}
	if len(result.FullSkills) > 0 {
		resp.FullSkills = make(map[string]string, len(result.FullSkills))
		for _, fs := range result.FullSkills {
			resp.FullSkills[fs.Name] = fs.Body
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("server.response.encode_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	gerr := gerrors.AsGatewayError(err)
	status := gerr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:    string(gerr.Code),
		Message: gerr.Message,
	}})
}
