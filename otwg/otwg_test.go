// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otwg_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/petenewcomb/workgang-go"
	"github.com/petenewcomb/workgang-go/otwg"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// yieldOnceTask parks every worker once, so each run yields the whole gang
// exactly once before completing.
type yieldOnceTask struct {
	workgang.TaskBase
	coordinations atomic.Int32
	spanContexts  atomic.Int32
}

func newYieldOnceTask(size int) *yieldOnceTask {
	t := &yieldOnceTask{}
	t.SetName("yield-once")
	t.SetRequestedSize(size)
	return t
}

func (t *yieldOnceTask) Work(worker int) {
	t.Yield()
}

func (t *yieldOnceTask) CoordinatorYield() {
	t.coordinations.Add(1)
}

// contextTask is a yieldOnceTask that also accepts the span context.
type contextTask struct {
	*yieldOnceTask
}

func (t contextTask) WorkContext(ctx context.Context, worker int) {
	if trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.spanContexts.Add(1)
	}
	t.Work(worker)
}

func runToEnd(gang *workgang.WorkGang, inner *yieldOnceTask, wrapped workgang.Task) {
	gang.StartTask(wrapped)
	for inner.Yielded() {
		gang.ContinueTask(wrapped)
	}
}

func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

func setupMetrics(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			}
		}
	}
	return values
}

func TestTracedTask(t *testing.T) {
	chk := require.New(t)
	sr := setupTracing(t)

	gang := workgang.NewWorkGang("traced", 3, workgang.GeneralPurpose)
	defer gang.Stop()

	ctx, root := otel.Tracer("test").Start(context.Background(), "root")
	inner := newYieldOnceTask(3)
	runToEnd(gang, inner, otwg.NewTracedTask(ctx, "op", inner))
	root.End()

	chk.True(inner.Completed())
	chk.Equal(int32(1), inner.coordinations.Load())

	workers := make(map[int64]bool)
	coordinations := 0
	for _, span := range sr.Ended() {
		switch span.Name() {
		case "op.work":
			chk.Equal(root.SpanContext().SpanID(), span.Parent().SpanID())
			for _, kv := range span.Attributes() {
				if kv.Key == attribute.Key("workgang.worker") {
					workers[kv.Value.AsInt64()] = true
				}
			}
		case "op.coordinator_yield":
			chk.Equal(root.SpanContext().SpanID(), span.Parent().SpanID())
			coordinations++
		}
	}
	chk.Equal(map[int64]bool{0: true, 1: true, 2: true}, workers)
	chk.Equal(1, coordinations)
}

func TestTracedTaskPassesSpanContext(t *testing.T) {
	chk := require.New(t)
	setupTracing(t)

	gang := workgang.NewWorkGang("traced-context", 2, workgang.GeneralPurpose)
	defer gang.Stop()

	inner := newYieldOnceTask(2)
	runToEnd(gang, inner, otwg.NewTracedTask(context.Background(), "op", contextTask{inner}))

	chk.True(inner.Completed())
	chk.Equal(int32(2), inner.spanContexts.Load())
}

func TestMetricsTaskAndObserveGang(t *testing.T) {
	chk := require.New(t)
	reader := setupMetrics(t)

	gang := workgang.NewWorkGang("metered", 4, workgang.GCTask)
	defer gang.Stop()
	reg, err := otwg.ObserveGang(gang)
	chk.NoError(err)
	defer func() { chk.NoError(reg.Unregister()) }()

	inner := newYieldOnceTask(3)
	wrapped, err := otwg.NewMetricsTask("op", inner)
	chk.NoError(err)
	runToEnd(gang, inner, wrapped)
	chk.True(inner.Completed())

	values := collectInt64(t, reader)
	chk.Equal(int64(3), values["op.work.count"])
	chk.Equal(int64(0), values["op.work.panics"])
	chk.Equal(int64(1), values["op.coordinator_yield.count"])
	chk.Equal(int64(4), values["workgang.workers.total"])
	chk.Equal(int64(0), values["workgang.workers.active"])
	chk.Equal(int64(0), values["workgang.workers.yielded"])
	chk.Equal(int64(1), values["workgang.tasks.started"])
	chk.Equal(int64(1), values["workgang.tasks.completed"])
	chk.Equal(int64(0), values["workgang.tasks.aborted"])
	chk.Equal(int64(1), values["workgang.gang_yields"])
	chk.Equal(int64(3), values["workgang.worker_yields"])
}

func TestObserveGangWhileYielded(t *testing.T) {
	chk := require.New(t)
	reader := setupMetrics(t)

	gang := workgang.NewWorkGang("observed", 4, workgang.GCTask)
	defer gang.Stop()
	reg, err := otwg.ObserveGang(gang)
	chk.NoError(err)
	defer func() { chk.NoError(reg.Unregister()) }()

	inner := newYieldOnceTask(2)
	gang.StartTask(inner)
	chk.True(inner.Yielded())

	values := collectInt64(t, reader)
	chk.Equal(int64(2), values["workgang.workers.active"])
	chk.Equal(int64(2), values["workgang.workers.yielded"])

	gang.AbortTask()
	chk.True(inner.Aborted())

	values = collectInt64(t, reader)
	chk.Equal(int64(0), values["workgang.workers.active"])
	chk.Equal(int64(1), values["workgang.tasks.aborted"])
}

func TestLoggedTask(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zap.DebugLevel)

	gang := workgang.NewWorkGang("logged", 2, workgang.GeneralPurpose)
	defer gang.Stop()

	inner := newYieldOnceTask(2)
	runToEnd(gang, inner, otwg.NewLoggedTask(zap.New(core), "op", inner))
	chk.True(inner.Completed())

	chk.Equal(2, logs.FilterMessage("work started").Len())
	chk.Equal(2, logs.FilterMessage("work finished").Len())
	chk.Equal(1, logs.FilterMessage("coordinator yield").Len())
	chk.Equal(5, logs.FilterField(zap.String("operation", "op")).Len())
}

func TestInstrument(t *testing.T) {
	chk := require.New(t)
	sr := setupTracing(t)
	reader := setupMetrics(t)
	core, logs := observer.New(zap.DebugLevel)

	gang := workgang.NewWorkGang("instrumented", 2, workgang.GeneralPurpose)
	defer gang.Stop()

	inner := newYieldOnceTask(2)
	wrapped, err := otwg.Instrument(context.Background(), zap.New(core), "all", inner)
	chk.NoError(err)
	runToEnd(gang, inner, wrapped)
	chk.True(inner.Completed())
	chk.Nil(gang.Task())

	chk.Len(sr.Ended(), 3)
	chk.Equal(int64(2), collectInt64(t, reader)["all.work.count"])
	chk.Equal(2, logs.FilterMessage("work finished").Len())
}
