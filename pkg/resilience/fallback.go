// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"

	"github.com/skillgate/skillgate/pkg/errors"
)

// FallbackStrategy produces an alternate result when the primary call fails,
// typically a secondary model provider or a canned answer.
type FallbackStrategy interface {
	// Execute runs the fallback, receiving the primary error for context.
	Execute(ctx context.Context, primaryErr error) (interface{}, error)
}

// FallbackFunc adapts a plain function into a FallbackStrategy.
type FallbackFunc func(ctx context.Context, primaryErr error) (interface{}, error)

// Execute implements FallbackStrategy.
func (f FallbackFunc) Execute(ctx context.Context, err error) (interface{}, error) {
	return f(ctx, err)
}

// StaticFallback answers every failure with a fixed value.
type StaticFallback struct {
	Value interface{}
}

// Execute implements FallbackStrategy.
func (s *StaticFallback) Execute(ctx context.Context, primaryErr error) (interface{}, error) {
	return s.Value, nil
}

// ErrorFallback converts the primary failure into a terminal gateway error
// with a caller-facing message.
type ErrorFallback struct {
	Message string
}

// Execute implements FallbackStrategy.
func (e *ErrorFallback) Execute(ctx context.Context, primaryErr error) (interface{}, error) {
	return nil, errors.New(errors.CodeInternal, e.Message, primaryErr).
		WithContext("fallback", "error").
		WithRecoverable(false)
}

// CachedFallback serves the last known good value when the primary fails.
type CachedFallback struct {
	Cache interface{}
}

// Execute implements FallbackStrategy.
func (c *CachedFallback) Execute(ctx context.Context, primaryErr error) (interface{}, error) {
	if c.Cache == nil {
		return nil, errors.New(errors.CodeInternal, "no cached value available", primaryErr).
			WithContext("fallback", "cache").
			WithRecoverable(false)
	}
	return c.Cache, nil
}

// ChainedFallback walks a list of strategies until one succeeds. Each
// strategy sees the error produced by the one before it.
type ChainedFallback struct {
	Fallbacks []FallbackStrategy
}

// Execute implements FallbackStrategy.
func (c *ChainedFallback) Execute(ctx context.Context, primaryErr error) (interface{}, error) {
	lastErr := primaryErr
	for _, fallback := range c.Fallbacks {
		value, err := fallback.Execute(ctx, lastErr)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// WithFallback runs fn and hands any failure to the strategy.
func WithFallback(ctx context.Context, fn func() (interface{}, error), fallback FallbackStrategy) (interface{}, error) {
	value, err := fn()
	if err == nil {
		return value, nil
	}
	return fallback.Execute(ctx, err)
}

// GracefulDegradation tracks consecutive primary failures and switches to the
// fallback once MaxErrors is reached. Below the threshold errors propagate so
// callers can retry against the primary.
type GracefulDegradation struct {
	Primary    func() (interface{}, error)
	Fallback   FallbackStrategy
	LogError   func(err error)
	MaxErrors  int
	ErrorCount int
}

// Execute runs the primary, falling back once the error threshold is crossed.
func (g *GracefulDegradation) Execute(ctx context.Context) (interface{}, error) {
	value, err := g.Primary()
	if err == nil {
		g.ErrorCount = 0
		return value, nil
	}

	g.ErrorCount++
	if g.LogError != nil {
		g.LogError(err)
	}

	if g.ErrorCount >= g.MaxErrors {
		return g.Fallback.Execute(ctx, err)
	}
	return nil, err
}

// IsOperational reports whether the primary is still trusted.
func (g *GracefulDegradation) IsOperational() bool {
	return g.ErrorCount < g.MaxErrors
}

// Status returns "operational" or "degraded".
func (g *GracefulDegradation) Status() string {
	if g.IsOperational() {
		return "operational"
	}
	return "degraded"
}
