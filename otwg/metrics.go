// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otwg

import (
	"context"
	"time"

	"github.com/petenewcomb/workgang-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricsTask wraps a task to record how often and for how long Work and
// CoordinatorYield run. Instruments are named after the metric name given to
// [NewMetricsTask]:
//
//	<name>.work.count                 Work invocations
//	<name>.work.duration              seconds spent in Work, parked time included
//	<name>.work.panics                Work invocations that panicked
//	<name>.coordinator_yield.count    coordinator callbacks
type MetricsTask struct {
	workgang.Task

	workCount     metric.Int64Counter
	workDuration  metric.Float64Histogram
	workPanics    metric.Int64Counter
	coordinations metric.Int64Counter
}

// NewMetricsTask creates the instruments for metricName using the global meter
// provider and wraps task with them.
func NewMetricsTask(metricName string, task workgang.Task) (*MetricsTask, error) {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	t := &MetricsTask{Task: task}
	var err error
	if t.workCount, err = meter.Int64Counter(metricName + ".work.count"); err != nil {
		return nil, err
	}
	if t.workDuration, err = meter.Float64Histogram(metricName+".work.duration",
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if t.workPanics, err = meter.Int64Counter(metricName + ".work.panics"); err != nil {
		return nil, err
	}
	if t.coordinations, err = meter.Int64Counter(metricName + ".coordinator_yield.count"); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *MetricsTask) Work(worker int) {
	ctx := context.Background()
	startTime := time.Now()
	t.workCount.Add(ctx, 1)

	didPanic := true
	defer func() {
		t.workDuration.Record(ctx, time.Since(startTime).Seconds())
		if didPanic {
			t.workPanics.Add(ctx, 1)
		}
	}()

	t.Task.Work(worker)
	didPanic = false
}

func (t *MetricsTask) CoordinatorYield() {
	t.coordinations.Add(context.Background(), 1)
	t.Task.CoordinatorYield()
}
