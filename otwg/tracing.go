// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otwg provides OpenTelemetry and zap instrumentation for workgang
// tasks and gangs. Each wrapper embeds the task it wraps, so the wrapper can
// be passed to [workgang.WorkGang.StartTask] in place of the original while
// status, sizing and yielding continue to go through the original's
// [workgang.TaskBase].
package otwg

import (
	"context"

	"github.com/petenewcomb/workgang-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/petenewcomb/workgang-go/otwg"

// ContextTask is implemented by tasks that want the trace context of the
// span surrounding each Work call, for example to start child spans.
type ContextTask interface {
	workgang.Task
	WorkContext(ctx context.Context, worker int)
}

// TracedTask wraps a task so that every Work and CoordinatorYield call is
// recorded as a span. Spans are children of the context given to
// [NewTracedTask].
type TracedTask struct {
	workgang.Task
	ctx    context.Context
	name   string
	tracer trace.Tracer
}

// NewTracedTask wraps task with spans named after operationName.
func NewTracedTask(ctx context.Context, operationName string, task workgang.Task) *TracedTask {
	return &TracedTask{
		Task:   task,
		ctx:    ctx,
		name:   operationName,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (t *TracedTask) Work(worker int) {
	ctx, span := t.tracer.Start(t.ctx, t.name+".work",
		trace.WithAttributes(attribute.Int("workgang.worker", worker)))
	didPanic := true
	defer func() {
		if didPanic {
			span.SetStatus(codes.Error, "work panicked")
		}
		span.End()
	}()

	if ct, ok := t.Task.(ContextTask); ok {
		ct.WorkContext(ctx, worker)
	} else {
		t.Task.Work(worker)
	}
	didPanic = false
}

func (t *TracedTask) CoordinatorYield() {
	_, span := t.tracer.Start(t.ctx, t.name+".coordinator_yield")
	defer span.End()
	t.Task.CoordinatorYield()
}
