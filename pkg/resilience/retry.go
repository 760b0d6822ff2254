// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience provides retry, timeout, circuit breaker and fallback
// patterns around the gateway's model and tool calls.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/skillgate/skillgate/pkg/errors"
)

// RetryConfig drives exponential-backoff retries.
type RetryConfig struct {
	// MaxAttempts bounds total attempts, counting the first call.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the grown backoff.
	MaxDelay time.Duration

	// Multiplier grows the delay each attempt; 0 means 2.0.
	Multiplier float64

	// IsRecoverable decides whether an error is worth another attempt.
	// Nil treats everything as recoverable.
	IsRecoverable func(error) bool

	// Jitter randomizes the delay by the given fraction, 0.1 meaning ±10%.
	Jitter float64
}

// DefaultRetryConfig is tuned for model-call latencies: three attempts,
// 100ms initial backoff, jittered.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: recoverable,
	}
}

// WithMaxAttempts returns a copy with MaxAttempts set.
func (rc RetryConfig) WithMaxAttempts(max int) RetryConfig {
	rc.MaxAttempts = max
	return rc
}

// WithInitialDelay returns a copy with InitialDelay set.
func (rc RetryConfig) WithInitialDelay(d time.Duration) RetryConfig {
	rc.InitialDelay = d
	return rc
}

// WithMaxDelay returns a copy with MaxDelay set.
func (rc RetryConfig) WithMaxDelay(d time.Duration) RetryConfig {
	rc.MaxDelay = d
	return rc
}

// WithIsRecoverable returns a copy with IsRecoverable set.
func (rc RetryConfig) WithIsRecoverable(fn func(error) bool) RetryConfig {
	rc.IsRecoverable = fn
	return rc
}

// Do runs fn until it succeeds, exhausts the attempt budget, or returns an
// unrecoverable error. The last error is returned on exhaustion.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = recoverable
	}

	var lastErr error
	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.New(errors.CodeContextLost, "context canceled during retry", ctx.Err()).
					WithContext("attempt", attempt).
					WithContext("max_attempts", rc.MaxAttempts)
			case <-time.After(rc.backoff(attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !rc.IsRecoverable(err) {
			return err
		}
	}
	return lastErr
}

// DoWithResult is Do for functions that produce a value.
func (rc RetryConfig) DoWithResult(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	var result interface{}
	err := rc.Do(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// backoff computes the jittered exponential delay before the given attempt.
func (rc RetryConfig) backoff(attempt int) time.Duration {
	multiplier := rc.Multiplier
	if multiplier == 0 {
		multiplier = 2.0
	}

	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(multiplier, float64(attempt)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}

	if rc.Jitter > 0 {
		spread := delay.Seconds() * rc.Jitter
		delay += time.Duration(2 * spread * (rand.Float64() - 0.5) * 1e9)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// recoverable is the default retry predicate: gateway errors carry an
// explicit flag, anything else gets the benefit of the doubt.
func recoverable(err error) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*errors.GatewayError); ok {
		return ge.Recoverable
	}
	return true
}
