// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func TestMemoryAuditStore(t *testing.T) {
	store := NewMemoryAuditStore()
	event := AuditEvent{
		RequestID: "chatcmpl-1",
		StepIndex: 0,
		Action:    AuditActionPlanBuild,
		Status:    AuditStatusCompleted,
		Payload:   map[string]any{"steps": 3},
		StartedAt: time.Now().UTC(),
	}
	if err := store.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}
	events, err := store.List(context.Background(), AuditFilter{RequestID: "chatcmpl-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Action != AuditActionPlanBuild {
		t.Fatalf("unexpected action: %s", events[0].Action)
	}

	events, err = store.List(context.Background(), AuditFilter{Status: AuditStatusFailed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no failed events, got %d", len(events))
	}
}

func TestSQLiteAuditStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:gateway_audit_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteAuditStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	event := AuditEvent{
		RequestID: "chatcmpl-1",
		StepIndex: 2,
		Action:    AuditActionToolCall,
		Status:    AuditStatusFailed,
		Payload:   map[string]any{"tool": "search"},
		Error:     "connection refused",
		StartedAt: time.Now().UTC(),
	}
	if err := store.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}
	events, err := store.List(context.Background(), AuditFilter{RequestID: "chatcmpl-1", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].StepIndex != 2 {
		t.Fatalf("unexpected step index: %d", events[0].StepIndex)
	}
	if events[0].Error != "connection refused" {
		t.Fatalf("unexpected error text: %s", events[0].Error)
	}
	if payload, ok := events[0].Payload.(map[string]any); !ok || payload["tool"] != "search" {
		t.Fatalf("unexpected payload: %#v", events[0].Payload)
	}
}
