package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/BDNK1/durable/runtime/history"
)

const instrumentationName = "github.com/BDNK1/durable/runtime"

// Request is one orchestration delivery from the host.
type Request struct {
	Orchestration string
	InstanceID    string
	History       *history.Log

	// Input is used when History has no ExecutionStarted event.
	Input string
}

// Runner drives one decision cycle per request: it starts a pass on the
// orchestration's host, waits for the pass to finish or stop, and assembles
// the Decision.
type Runner struct {
	l      *slog.Logger
	app    *App
	tracer trace.Tracer

	decisions     metric.Int64Counter
	activityCalls metric.Int64Counter
}

func NewRunner(l *slog.Logger, app *App) *Runner {
	meter := otel.Meter(instrumentationName)

	decisions, err := meter.Int64Counter("durable.decisions",
		metric.WithDescription("Orchestration decisions produced, by outcome"))
	if err != nil {
		l.Warn("Failed to create decisions counter", "error", err)
		decisions = noop.Int64Counter{}
	}
	activityCalls, err := meter.Int64Counter("durable.activity.calls",
		metric.WithDescription("Activity call actions emitted, by action type"))
	if err != nil {
		l.Warn("Failed to create activity calls counter", "error", err)
		activityCalls = noop.Int64Counter{}
	}

	return &Runner{
		l:             l,
		app:           app,
		tracer:        otel.Tracer(instrumentationName),
		decisions:     decisions,
		activityCalls: activityCalls,
	}
}

// Run replays the orchestration over req.History and decides what happens next.
//
// A pass that stops for new history yields IsDone false. A pass that ends in
// an OrchestrationFailure yields IsDone true with Decision.Error set. Any
// other error from the body is returned.
func (r *Runner) Run(ctx context.Context, req Request) (*Decision, error) {
	o, err := r.app.Orchestration(req.Orchestration)
	if err != nil {
		return nil, err
	}
	host, err := r.app.Host(o.Engine)
	if err != nil {
		return nil, err
	}
	if req.History == nil {
		req.History = history.NewLog()
	}

	ctx, span := r.tracer.Start(ctx, "orchestration.decide", trace.WithAttributes(
		attribute.String("orchestration", o.Name),
		attribute.String("engine", o.Engine),
		attribute.String("instance_id", req.InstanceID),
		attribute.Int("history.length", req.History.Len()),
	))
	defer span.End()

	exec, err := NewExecution(ctx, o, req.InstanceID, req.History, r.app.Properties)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error preparing orchestration %s: %w", o.Name, err)
	}
	exec.l = r.l
	if exec.Input == nil && req.Input != "" {
		exec.Input = decodePayload(req.Input)
		exec.AddValue("input", exec.Input)
	}

	collector := exec.Collector()
	stopOnCancel := context.AfterFunc(ctx, collector.Stop)
	defer stopOnCancel()

	r.l.InfoContext(exec, fmt.Sprintf("Starting orchestration pass: %s", o.Name),
		"instance_id", exec.InstanceID,
		"history", req.History.Len())

	inv := host.Start(exec)
	defer closeWhenDone(inv)

	shouldStop, batches := collector.WaitForActions(inv.Done())

	if err := ctx.Err(); err != nil {
		inv.Stop()
		span.SetStatus(codes.Error, "cancelled")
		return nil, fmt.Errorf("orchestration %s cancelled: %w", o.Name, err)
	}

	decision := &Decision{
		Actions:      batches,
		CustomStatus: exec.CustomStatus(),
	}

	if shouldStop {
		inv.Stop()
		r.record(ctx, exec, decision, "stopped")
		return decision, nil
	}

	output, runErr := inv.Result()
	decision.CustomStatus = exec.CustomStatus()

	failure := exec.Failure()
	if failure == nil {
		errors.As(runErr, &failure)
	}
	if failure != nil {
		decision.IsDone = true
		decision.Output = output
		decision.Error = failure
		span.SetStatus(codes.Error, failure.Error())
		r.record(ctx, exec, decision, "failed")
		return decision, nil
	}

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		r.decisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("orchestration", o.Name),
			attribute.String("outcome", "error"),
		))
		r.l.ErrorContext(exec, fmt.Sprintf("Orchestration pass failed: %s", o.Name),
			"instance_id", exec.InstanceID,
			"error", runErr)
		return nil, fmt.Errorf("orchestration %s: %w", o.Name, runErr)
	}

	decision.IsDone = true
	decision.Output = output
	r.record(ctx, exec, decision, "completed")
	return decision, nil
}

func (r *Runner) record(ctx context.Context, exec *Execution, d *Decision, outcome string) {
	name := exec.Orchestration.Name

	r.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("orchestration", name),
		attribute.String("outcome", outcome),
	))
	for _, batch := range d.Actions {
		for _, a := range batch {
			r.activityCalls.Add(ctx, 1, metric.WithAttributes(
				attribute.String("orchestration", name),
				attribute.String("action", a.Type().String()),
			))
		}
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Bool("decision.done", d.IsDone),
		attribute.Int("decision.actions", d.ActionCount()),
	)

	r.l.InfoContext(exec, fmt.Sprintf("Orchestration pass %s: %s", outcome, name),
		"instance_id", exec.InstanceID,
		"done", d.IsDone,
		"actions", d.ActionCount())
}

// closeWhenDone releases the pass once its body has returned. A stopped body
// may still be unwinding, so Close then happens in the background.
func closeWhenDone(inv Invocation) {
	select {
	case <-inv.Done():
		inv.Close()
	default:
		go inv.Close()
	}
}
