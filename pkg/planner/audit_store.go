// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// AuditEvent records one observable action the gateway took for a request:
// a plan built, a step iteration, a skill disclosure, a tool call.
type AuditEvent struct {
	RequestID  string
	StepIndex  int
	Action     string
	Status     string
	Payload    any
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Audit action names.
const (
	AuditActionPlanBuild      = "plan.build"
	AuditActionModelDecision  = "step.model_decision"
	AuditActionToolCall       = "step.tool_call"
	AuditActionSkillDisclosed = "step.skill_disclosed"
	AuditActionFinalResponse  = "step.final_response"
)

// Audit statuses.
const (
	AuditStatusStarted   = "started"
	AuditStatusCompleted = "completed"
	AuditStatusFailed    = "failed"
)

// AuditStore persists gateway audit events.
type AuditStore interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// AuditFilter limits audit event queries.
type AuditFilter struct {
	RequestID string
	Action    string
	Status    string
	Limit     int
}

// MemoryAuditStore keeps audit events in memory.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemoryAuditStore returns an in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

// Record appends an audit event.
func (s *MemoryAuditStore) Record(_ context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events.
func (s *MemoryAuditStore) List(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, 0, len(s.events))
	for _, ev := range s.events {
		if filter.RequestID != "" && ev.RequestID != filter.RequestID {
			continue
		}
		if filter.Action != "" && ev.Action != filter.Action {
			continue
		}
		if filter.Status != "" && ev.Status != filter.Status {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// encodeAuditPayload marshals the payload into JSON.
func encodeAuditPayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("null"), nil
	}
	return json.Marshal(payload)
}

// decodeAuditPayload parses a JSON payload.
func decodeAuditPayload(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeAuditTime ensures timestamps are stored in UTC.
func normalizeAuditTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
