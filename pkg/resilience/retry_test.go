// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	gerrors "github.com/skillgate/skillgate/pkg/errors"
)

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()
	err := cfg.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("model backend unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(2)
	err := cfg.Do(context.Background(), func() error {
		attempts++
		return errors.New("model backend unavailable")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryHonorsRecoverability(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithIsRecoverable(func(err error) bool {
		return false
	})
	if err := cfg.Do(context.Background(), func() error {
		attempts++
		return gerrors.New(gerrors.CodeInvalidInput, "malformed request", nil).WithRecoverable(false)
	}); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("non-recoverable errors must not be retried, attempts = %d", attempts)
	}
}

func TestRetryRetriesRecoverableGatewayError(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()
	err := cfg.Do(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return gerrors.New(gerrors.CodeTimeout, "model call timed out", nil).WithRecoverable(true)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig().WithInitialDelay(100 * time.Millisecond)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := cfg.Do(ctx, func() error {
		attempts++
		return errors.New("model backend unavailable")
	})
	if err == nil {
		t.Fatal("expected context error")
	}
	if attempts < 1 {
		t.Errorf("expected at least one attempt before cancel")
	}
}

func TestRetryDoWithResult(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()
	result, err := cfg.DoWithResult(context.Background(), func() (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("model backend unavailable")
		}
		return "plan built", nil
	})
	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if result != "plan built" {
		t.Errorf("result = %v", result)
	}
}
