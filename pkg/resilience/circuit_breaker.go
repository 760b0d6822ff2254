// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/skillgate/skillgate/pkg/errors"
)

// CircuitBreakerState names the breaker's position.
type CircuitBreakerState string

const (
	// StateClosed lets calls through normally.
	StateClosed CircuitBreakerState = "closed"

	// StateOpen short-circuits calls without invoking the backend.
	StateOpen CircuitBreakerState = "open"

	// StateHalfOpen probes the backend after the open timeout elapses.
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig tunes when the breaker trips and recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is how many consecutive failures trip the breaker.
	FailureThreshold int

	// SuccessThreshold is how many half-open successes close it again.
	SuccessThreshold int

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// Name identifies the breaker in logs and error context.
	Name string
}

// CircuitBreaker stops hammering a backend that keeps failing, giving it a
// quiet period before probing for recovery.
type CircuitBreaker struct {
	config       CircuitBreakerConfig
	state        CircuitBreakerState
	failures     int
	successes    int
	lastFailTime time.Time
	mu           sync.RWMutex
}

// NewCircuitBreaker builds a breaker, filling unset config fields with
// defaults of 5 failures, 2 successes and a 30s open period.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "circuit_breaker"
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Call runs fn unless the breaker is open, in which case a recoverable
// error is returned without touching the backend.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeProbe()

	if cb.state == StateOpen {
		return errors.New(errors.CodeInternal, "circuit breaker open", nil).
			WithContext("breaker", cb.config.Name).
			WithRecoverable(true)
	}

	err := fn()
	if err != nil {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
	return err
}

// maybeProbe moves an expired open breaker to half-open. Caller holds the lock.
func (cb *CircuitBreaker) maybeProbe() {
	if cb.state == StateOpen && time.Since(cb.lastFailTime) > cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.failures = 0
		cb.successes = 0
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failures++
	cb.lastFailTime = time.Now()

	if cb.state == StateClosed && cb.failures >= cb.config.FailureThreshold {
		cb.state = StateOpen
		cb.failures = 0
		cb.successes = 0
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

// State returns the breaker's current position.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// Open forces the breaker open, as if the failure threshold had tripped.
func (cb *CircuitBreaker) Open() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateOpen
	cb.lastFailTime = time.Now()
}
