// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"log/slog"

	"github.com/skillgate/skillgate/pkg/resilience"
)

// ResilientProvider guards a Provider behind a circuit breaker and, when
// configured, fails over to a secondary provider while the primary is
// unhealthy or the circuit is open.
type ResilientProvider struct {
	primary  Provider
	fallback Provider
	breaker  *resilience.CircuitBreaker
}

// NewResilientProvider wraps primary. fallback may be nil, in which case
// failures surface directly once the breaker opens.
func NewResilientProvider(primary Provider, fallback Provider, cfg resilience.CircuitBreakerConfig) *ResilientProvider {
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	return &ResilientProvider{
		primary:  primary,
		fallback: fallback,
		breaker:  resilience.NewCircuitBreaker(cfg),
	}
}

// Chat implements Provider.
func (p *ResilientProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse
	err := p.breaker.Call(ctx, func() error {
		r, callErr := p.primary.Chat(ctx, req)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err == nil {
		return resp, nil
	}
	if p.fallback == nil {
		return nil, err
	}
	failover := resilience.FallbackFunc(func(ctx context.Context, primaryErr error) (interface{}, error) {
		slog.WarnContext(ctx, "llm.provider.failover",
			"breaker_state", string(p.breaker.State()),
			"error", primaryErr,
		)
		return p.fallback.Chat(ctx, req)
	})
	out, err := failover.Execute(ctx, err)
	if err != nil {
		return nil, err
	}
	return out.(*ChatResponse), nil
}

// BreakerState exposes the circuit state for health reporting.
func (p *ResilientProvider) BreakerState() resilience.CircuitBreakerState {
	return p.breaker.State()
}

var _ Provider = (*ResilientProvider)(nil)
