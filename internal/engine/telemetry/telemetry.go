// Package telemetry wraps go.opentelemetry.io/otel to give the Executor
// Dispatcher and its sub-executors run/step spans and metrics. It is
// ambient in-process observability: span/metric failures are impossible
// by construction (the otel SDK no-ops without a configured exporter),
// so it never gates control flow.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "archon.engine"
	meterName  = "archon.engine"
)

// Telemetry holds the engine's tracer, meter, and instruments.
type Telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter

	runCounter     metric.Int64Counter
	runDuration    metric.Float64Histogram
	stepCounter    metric.Int64Counter
	stepDuration   metric.Float64Histogram
	activeRuns     metric.Int64UpDownCounter
	failureCounter metric.Int64Counter

	mu       sync.RWMutex
	runSpans map[string]trace.Span
}

// New builds a Telemetry instance registering its instruments against the
// globally configured otel MeterProvider.
func New() (*Telemetry, error) {
	t := &Telemetry{
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
		runSpans: make(map[string]trace.Span),
	}

	var err error
	if t.runCounter, err = t.meter.Int64Counter("archon_workflow_runs_total",
		metric.WithDescription("Total number of workflow runs started"), metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("create run counter: %w", err)
	}
	if t.runDuration, err = t.meter.Float64Histogram("archon_workflow_run_duration_seconds",
		metric.WithDescription("Duration of workflow runs in seconds"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create run duration histogram: %w", err)
	}
	if t.stepCounter, err = t.meter.Int64Counter("archon_workflow_steps_total",
		metric.WithDescription("Total number of workflow steps executed"), metric.WithUnit("{step}")); err != nil {
		return nil, fmt.Errorf("create step counter: %w", err)
	}
	if t.stepDuration, err = t.meter.Float64Histogram("archon_workflow_step_duration_seconds",
		metric.WithDescription("Duration of workflow step execution in seconds"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create step duration histogram: %w", err)
	}
	if t.activeRuns, err = t.meter.Int64UpDownCounter("archon_workflow_runs_active",
		metric.WithDescription("Number of currently active workflow runs"), metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("create active runs counter: %w", err)
	}
	if t.failureCounter, err = t.meter.Int64Counter("archon_workflow_failures_total",
		metric.WithDescription("Total number of workflow failures (runs + steps)"), metric.WithUnit("{failure}")); err != nil {
		return nil, fmt.Errorf("create failure counter: %w", err)
	}

	return t, nil
}

// StartRun opens a run-scoped span, records it for later lookup by EndRun,
// and increments the run/active-run counters.
func (t *Telemetry) StartRun(ctx context.Context, runID, workflowName string) context.Context {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("workflow.run.%s", workflowName),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workflow.run_id", runID),
			attribute.String("workflow.name", workflowName),
		),
	)

	t.mu.Lock()
	t.runSpans[runID] = span
	t.mu.Unlock()

	t.runCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow.name", workflowName)))
	t.activeRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow.name", workflowName)))

	return ctx
}

// EndRun closes the run span opened by StartRun, records its duration and
// status, and decrements the active-run counter.
func (t *Telemetry) EndRun(ctx context.Context, runID, workflowName, status string, duration time.Duration, err error) {
	t.mu.Lock()
	span, ok := t.runSpans[runID]
	delete(t.runSpans, runID)
	t.mu.Unlock()

	if !ok || span == nil {
		return
	}

	span.SetAttributes(
		attribute.String("workflow.status", status),
		attribute.Float64("workflow.duration_seconds", duration.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.failureCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("workflow.name", workflowName), attribute.String("failure.type", "run")))
	} else if status == "completed" {
		span.SetStatus(codes.Ok, "workflow completed")
	}
	span.End()

	t.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("workflow.name", workflowName), attribute.String("workflow.status", status)))
	t.activeRuns.Add(ctx, -1, metric.WithAttributes(attribute.String("workflow.name", workflowName)))
}

// StartStep opens a step-scoped span and increments the step counter.
func (t *Telemetry) StartStep(ctx context.Context, runID, stepID, stepType string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("workflow.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workflow.run_id", runID),
			attribute.String("workflow.step_id", stepID),
			attribute.String("workflow.step_type", stepType),
		),
	)
	t.stepCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow.step_type", stepType)))
	return ctx, span
}

// EndStep closes a step span opened by StartStep, recording its duration
// and status.
func (t *Telemetry) EndStep(ctx context.Context, span trace.Span, stepType, status string, duration time.Duration, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("workflow.step_status", status),
		attribute.Float64("workflow.step_duration_seconds", duration.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if status == "completed" {
		span.SetStatus(codes.Ok, "step completed")
	}
	span.End()

	t.stepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("workflow.step_type", stepType), attribute.String("workflow.step_status", status)))
	if err != nil || status == "failed" {
		t.failureCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("workflow.step_type", stepType), attribute.String("failure.type", "step")))
	}
}
