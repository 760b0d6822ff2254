// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"time"

	"github.com/skillgate/skillgate/pkg/errors"
)

// TimeoutConfig bounds a single operation, typically one plan step.
type TimeoutConfig struct {
	// Duration is the budget; 0 disables the boundary entirely.
	Duration time.Duration

	// ErrorOnTimeout is reserved for callers that prefer a zero value over
	// an error when the deadline passes.
	ErrorOnTimeout bool
}

// WithTimeout runs fn under the configured deadline. A blown deadline yields
// a recoverable CodeTimeout error; fn keeps running in its goroutine but its
// eventual result is discarded.
func WithTimeout(ctx context.Context, config TimeoutConfig, fn func() error) error {
	if config.Duration == 0 {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case <-ctx.Done():
		return timeoutError(ctx, config.Duration)
	case err := <-done:
		return err
	}
}

// WithTimeoutResult is WithTimeout for functions that produce a value.
func WithTimeoutResult(ctx context.Context, config TimeoutConfig, fn func() (interface{}, error)) (interface{}, error) {
	if config.Duration == 0 {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn()
		done <- outcome{value, err}
	}()

	select {
	case <-ctx.Done():
		return nil, timeoutError(ctx, config.Duration)
	case out := <-done:
		return out.value, out.err
	}
}

func timeoutError(ctx context.Context, budget time.Duration) *errors.GatewayError {
	return errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
		WithContext("timeout", budget.String()).
		WithRecoverable(true)
}
