// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otwg

import (
	"context"

	"github.com/petenewcomb/workgang-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ObserveGang registers observable instruments that report the state of gang
// whenever metrics are collected from the global meter provider. Every
// observation carries the gang's name and kind as attributes. Call Unregister
// on the result once the gang has been stopped.
//
//	workgang.workers.total        gauge
//	workgang.workers.active       gauge
//	workgang.workers.yielded      gauge
//	workgang.tasks.started        counter
//	workgang.tasks.completed      counter
//	workgang.tasks.aborted        counter
//	workgang.gang_yields          counter
//	workgang.worker_yields        counter
func ObserveGang(gang *workgang.WorkGang) (metric.Registration, error) {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	total, err := meter.Int64ObservableGauge("workgang.workers.total")
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64ObservableGauge("workgang.workers.active")
	if err != nil {
		return nil, err
	}
	yielded, err := meter.Int64ObservableGauge("workgang.workers.yielded")
	if err != nil {
		return nil, err
	}
	started, err := meter.Int64ObservableCounter("workgang.tasks.started")
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64ObservableCounter("workgang.tasks.completed")
	if err != nil {
		return nil, err
	}
	aborted, err := meter.Int64ObservableCounter("workgang.tasks.aborted")
	if err != nil {
		return nil, err
	}
	gangYields, err := meter.Int64ObservableCounter("workgang.gang_yields")
	if err != nil {
		return nil, err
	}
	workerYields, err := meter.Int64ObservableCounter("workgang.worker_yields")
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(
		attribute.String("workgang.name", gang.Name()),
		attribute.String("workgang.kind", gang.Kind().String()))

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := gang.Stats()
		o.ObserveInt64(total, int64(gang.TotalWorkers()), attrs)
		o.ObserveInt64(active, int64(gang.ActiveWorkers()), attrs)
		o.ObserveInt64(yielded, int64(gang.YieldedWorkers()), attrs)
		o.ObserveInt64(started, stats.TasksStarted, attrs)
		o.ObserveInt64(completed, stats.TasksCompleted, attrs)
		o.ObserveInt64(aborted, stats.TasksAborted, attrs)
		o.ObserveInt64(gangYields, stats.GangYields, attrs)
		o.ObserveInt64(workerYields, stats.WorkerYields, attrs)
		return nil
	}, total, active, yielded, started, completed, aborted, gangYields, workerYields)
}
