// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"

	gerrors "github.com/skillgate/skillgate/pkg/errors"
)

func TestStaticFallback(t *testing.T) {
	fb := &StaticFallback{Value: "no skills matched this request"}
	out, err := fb.Execute(context.Background(), errors.New("model backend unavailable"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "no skills matched this request" {
		t.Errorf("out = %v", out)
	}
}

func TestErrorFallback(t *testing.T) {
	fb := &ErrorFallback{Message: "gateway cannot answer right now"}
	_, err := fb.Execute(context.Background(), errors.New("model backend unavailable"))
	if err == nil {
		t.Fatal("expected error")
	}
	ge := gerrors.AsGatewayError(err)
	if ge.Code != gerrors.CodeInternal {
		t.Errorf("code = %v", ge.Code)
	}
	if ge.Recoverable {
		t.Error("error fallback must be terminal")
	}
}

func TestCachedFallback(t *testing.T) {
	fb := &CachedFallback{Cache: "last good plan"}
	out, err := fb.Execute(context.Background(), errors.New("model backend unavailable"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "last good plan" {
		t.Errorf("out = %v", out)
	}
}

func TestCachedFallbackEmpty(t *testing.T) {
	fb := &CachedFallback{}
	_, err := fb.Execute(context.Background(), errors.New("model backend unavailable"))
	if err == nil {
		t.Fatal("empty cache should be an error")
	}
}

func TestChainedFallbackStopsAtFirstSuccess(t *testing.T) {
	chain := &ChainedFallback{Fallbacks: []FallbackStrategy{
		&CachedFallback{}, // fails, nothing cached
		&StaticFallback{Value: "canned answer"},
		&ErrorFallback{Message: "never reached"},
	}}
	out, err := chain.Execute(context.Background(), errors.New("model backend unavailable"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "canned answer" {
		t.Errorf("out = %v", out)
	}
}

func TestChainedFallbackExhausted(t *testing.T) {
	chain := &ChainedFallback{Fallbacks: []FallbackStrategy{
		&CachedFallback{},
		&ErrorFallback{Message: "all model backends failed"},
	}}
	_, err := chain.Execute(context.Background(), errors.New("model backend unavailable"))
	if err == nil {
		t.Fatal("expected the final fallback error")
	}
}

func TestWithFallbackSuccessSkipsStrategy(t *testing.T) {
	out, err := WithFallback(context.Background(), func() (interface{}, error) {
		return "direct answer", nil
	}, &ErrorFallback{Message: "unused"})
	if err != nil {
		t.Fatalf("WithFallback: %v", err)
	}
	if out != "direct answer" {
		t.Errorf("out = %v", out)
	}
}

func TestWithFallbackOnError(t *testing.T) {
	out, err := WithFallback(context.Background(), func() (interface{}, error) {
		return nil, errors.New("model backend unavailable")
	}, &StaticFallback{Value: "canned answer"})
	if err != nil {
		t.Fatalf("WithFallback: %v", err)
	}
	if out != "canned answer" {
		t.Errorf("out = %v", out)
	}
}

func TestFallbackFunc(t *testing.T) {
	var seen error
	fb := FallbackFunc(func(ctx context.Context, primaryErr error) (interface{}, error) {
		seen = primaryErr
		return "from func", nil
	})
	out, err := fb.Execute(context.Background(), errors.New("model backend unavailable"))
	if err != nil || out != "from func" {
		t.Fatalf("out = %v err = %v", out, err)
	}
	if seen == nil {
		t.Error("primary error not forwarded")
	}
}

func TestGracefulDegradation(t *testing.T) {
	calls := 0
	g := &GracefulDegradation{
		Primary: func() (interface{}, error) {
			calls++
			return nil, errors.New("model backend unavailable")
		},
		Fallback:  &StaticFallback{Value: "degraded answer"},
		MaxErrors: 2,
	}

	// First failure propagates so the caller can retry.
	if _, err := g.Execute(context.Background()); err == nil {
		t.Fatal("first failure should surface")
	}
	if !g.IsOperational() {
		t.Error("one failure should not degrade the service")
	}

	// Second failure crosses the threshold and engages the fallback.
	out, err := g.Execute(context.Background())
	if err != nil {
		t.Fatalf("fallback should answer: %v", err)
	}
	if out != "degraded answer" {
		t.Errorf("out = %v", out)
	}
	if g.Status() != "degraded" {
		t.Errorf("status = %q", g.Status())
	}
	if calls != 2 {
		t.Errorf("primary calls = %d", calls)
	}
}

func TestGracefulDegradationRecovers(t *testing.T) {
	fail := true
	g := &GracefulDegradation{
		Primary: func() (interface{}, error) {
			if fail {
				return nil, errors.New("model backend unavailable")
			}
			return "healthy again", nil
		},
		Fallback:  &StaticFallback{Value: "degraded answer"},
		MaxErrors: 1,
	}

	if _, err := g.Execute(context.Background()); err != nil {
		t.Fatalf("threshold of one should engage fallback immediately: %v", err)
	}
	if g.Status() != "degraded" {
		t.Errorf("status = %q", g.Status())
	}

	fail = false
	out, err := g.Execute(context.Background())
	if err != nil || out != "healthy again" {
		t.Fatalf("out = %v err = %v", out, err)
	}
	if g.Status() != "operational" {
		t.Errorf("status after recovery = %q", g.Status())
	}
}
