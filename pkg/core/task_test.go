package core

import "testing"

func TestTaskLifecycle(t *testing.T) {
	task := NewTask("summarize the release notes", "gateway")
	if task.Status != TaskStatusPending {
		t.Fatalf("expected pending status")
	}
	if task.ID == "" {
		t.Fatalf("expected generated task id")
	}
	task.Start()
	if task.Status != TaskStatusRunning {
		t.Fatalf("expected running status")
	}
	task.Complete("done")
	if task.Status != TaskStatusCompleted {
		t.Fatalf("expected completed status")
	}
	if task.Result != "done" {
		t.Fatalf("expected result to be set")
	}
	task.Fail("err")
	if task.Status != TaskStatusFailed {
		t.Fatalf("expected failed status")
	}
	if task.Error == "" {
		t.Fatalf("expected error to be set")
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(t.Context())
	if id == "" {
		t.Fatalf("expected generated run id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Fatalf("expected stable run id, got %s and %s", id, id2)
	}
	if ctx2 != ctx {
		t.Fatalf("expected unchanged context when run id present")
	}
}

func TestTaskFromContext(t *testing.T) {
	task := NewTask("goal", "gateway")
	ctx := WithTask(t.Context(), task)
	got, ok := TaskFromContext(ctx)
	if !ok || got != task {
		t.Fatalf("expected task round-trip through context")
	}
}
