package core

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted by the gateway.
type EventType string

const (
	EventRequestStarted   EventType = "gateway.request.started"
	EventRequestCompleted EventType = "gateway.request.completed"
	EventPlanBuilt        EventType = "gateway.plan.built"
	EventStepStarted      EventType = "gateway.step.started"
	EventStepCompleted    EventType = "gateway.step.completed"
	EventSkillDisclosed   EventType = "gateway.skill.disclosed"
	EventToolCalled       EventType = "gateway.tool.called"
	EventGatewayError     EventType = "gateway.error"
)

// Event captures a semantic streaming/logging event.
type Event struct {
	Type      EventType
	Source    string
	TaskID    string
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, source string, taskID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Source:    source,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
