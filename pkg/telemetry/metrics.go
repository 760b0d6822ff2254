// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	gerrors "github.com/skillgate/skillgate/pkg/errors"
)

// GatewayMetrics tracks request, plan and loop outcomes for production monitoring.
type GatewayMetrics struct {
	// requestCounter tracks total gateway requests.
	requestCounter metric.Int64Counter

	// errorCounter tracks errors by code and component.
	errorCounter metric.Int64Counter

	// planStepsHistogram tracks plan sizes.
	planStepsHistogram metric.Int64Histogram

	// stepIterations tracks loop iterations consumed per step.
	stepIterations metric.Int64Histogram

	// skillDisclosures tracks full-body skill disclosures.
	skillDisclosures metric.Int64Counter

	// llmLatencyMs and toolLatencyMs track the two suspension points.
	llmLatencyMs  metric.Float64Histogram
	toolLatencyMs metric.Float64Histogram
}

// NewGatewayMetrics creates a gateway metrics tracker with OTEL meters.
func NewGatewayMetrics() (*GatewayMetrics, error) {
	meter := otel.Meter("skillgate/gateway")

	requestCounter, err := meter.Int64Counter(
		"skillgate.requests.total",
		metric.WithDescription("Total gateway requests"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"skillgate.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	planStepsHistogram, err := meter.Int64Histogram(
		"skillgate.plan.steps",
		metric.WithDescription("Number of steps per built plan"),
	)
	if err != nil {
		return nil, err
	}

	stepIterations, err := meter.Int64Histogram(
		"skillgate.step.iterations",
		metric.WithDescription("Loop iterations consumed per step"),
	)
	if err != nil {
		return nil, err
	}

	skillDisclosures, err := meter.Int64Counter(
		"skillgate.skills.disclosed",
		metric.WithDescription("Full skill bodies disclosed to the model"),
	)
	if err != nil {
		return nil, err
	}

	llmLatencyMs, err := meter.Float64Histogram(
		"skillgate.llm.latency_ms",
		metric.WithDescription("Model call latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	toolLatencyMs, err := meter.Float64Histogram(
		"skillgate.tool.latency_ms",
		metric.WithDescription("External tool call latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	return &GatewayMetrics{
		requestCounter:     requestCounter,
		errorCounter:       errorCounter,
		planStepsHistogram: planStepsHistogram,
		stepIterations:     stepIterations,
		skillDisclosures:   skillDisclosures,
		llmLatencyMs:       llmLatencyMs,
		toolLatencyMs:      toolLatencyMs,
	}, nil
}

// RecordRequest increments the request counter.
func (gm *GatewayMetrics) RecordRequest(ctx context.Context) {
	if gm == nil {
		return
	}
	gm.requestCounter.Add(ctx, 1)
}

// RecordError increments the error counter with code and component attributes.
func (gm *GatewayMetrics) RecordError(ctx context.Context, err error, component string) {
	if gm == nil || err == nil {
		return
	}
	code := gerrors.CodeInternal
	var ge *gerrors.GatewayError
	if errors.As(err, &ge) {
		code = ge.Code
	}
	gm.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", string(code)),
		attribute.String("component", component),
	))
}

// RecordPlanSize records the number of steps of a built plan.
func (gm *GatewayMetrics) RecordPlanSize(ctx context.Context, steps int) {
	if gm == nil {
		return
	}
	gm.planStepsHistogram.Record(ctx, int64(steps))
}

// RecordStepIterations records the iterations a step consumed before resolving.
func (gm *GatewayMetrics) RecordStepIterations(ctx context.Context, index, iterations int) {
	if gm == nil {
		return
	}
	gm.stepIterations.Record(ctx, int64(iterations), metric.WithAttributes(
		attribute.Int(AttrStepIndex, index),
	))
}

// RecordSkillDisclosure counts a full-body disclosure of the named skill.
func (gm *GatewayMetrics) RecordSkillDisclosure(ctx context.Context, name string) {
	if gm == nil {
		return
	}
	gm.skillDisclosures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSkillName, name),
	))
}

// RecordLLMLatency records one model call latency.
func (gm *GatewayMetrics) RecordLLMLatency(ctx context.Context, ms float64) {
	if gm == nil {
		return
	}
	gm.llmLatencyMs.Record(ctx, ms)
}

// RecordToolLatency records one tool call latency.
func (gm *GatewayMetrics) RecordToolLatency(ctx context.Context, tool string, ms float64) {
	if gm == nil {
		return
	}
	gm.toolLatencyMs.Record(ctx, ms, metric.WithAttributes(
		attribute.String(AttrToolName, tool),
	))
}
