// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"time"

	"github.com/petenewcomb/workgang-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Result is what running one task of a plan produced.
type Result struct {
	Task           *TaskPlan
	Status         workgang.Status
	ActualSize     int
	Coordinations  int
	Stats          workgang.Stats
	MaxConcurrency int64
	Duration       time.Duration
}

// Run creates a gang for plan, runs each of its tasks to the end in order and
// stops the gang. Invariant violations observed along the way fail t.
func Run(t require.TestingT, plan *Plan, logger *zap.Logger) []*Result {
	chk := require.New(t)
	if logger == nil {
		logger = zap.NewNop()
	}

	gang := workgang.NewWorkGang(
		fmt.Sprintf("Plan#%d", plan.ID),
		plan.Workers,
		workgang.GeneralPurpose,
		workgang.WithLogger(logger),
		workgang.WithProfilerLabels(plan.ProfilerLabels),
	)
	defer gang.Stop()

	v := &violations{}
	results := make([]*Result, 0, len(plan.Tasks))
	for _, tp := range plan.Tasks {
		results = append(results, runTask(chk, gang, tp, v, logger))
		chk.Empty(v.drain())
		chk.Nil(gang.Task())
		chk.Zero(gang.ActiveWorkers())
		chk.Zero(gang.YieldedWorkers())
	}
	return results
}

func runTask(chk *require.Assertions, gang *workgang.WorkGang, tp *TaskPlan, v *violations, logger *zap.Logger) *Result {
	task := newScriptedTask(tp, gang, v)
	before := gang.Stats()
	start := time.Now()

	gang.StartTask(task)
	for task.Yielded() {
		chk.Same(gang.Task(), workgang.Task(task))
		if tp.AbortAfterYields > 0 && task.coordinations >= tp.AbortAfterYields {
			logger.Debug("overseer aborting",
				zap.String("task", task.Name()),
				zap.Int("coordinations", task.coordinations))
			gang.AbortTask()
			break
		}
		gang.ContinueTask(task)
	}

	r := &Result{
		Task:           tp,
		Status:         task.Status(),
		ActualSize:     task.ActualSize(),
		Coordinations:  task.coordinations,
		Stats:          gang.Stats().Sub(before),
		MaxConcurrency: task.maxConc.Load(),
		Duration:       time.Since(start),
	}
	logger.Debug("task ran",
		zap.String("task", task.Name()),
		zap.Stringer("status", r.Status),
		zap.Int("coordinations", r.Coordinations),
		zap.Duration("duration", r.Duration))
	return r
}

// Check verifies a result against the expectation derived from its plan.
func (r *Result) Check(t require.TestingT, workers int) {
	chk := require.New(t)
	e := r.Task.Expect(workers)

	chk.Equal(e.Status, r.Status, "%v", r.Task.ID)
	if e.Status == workgang.Inactive {
		chk.Zero(r.Stats.TasksStarted)
		chk.Zero(r.Stats.WorkCalls)
		chk.Zero(r.Coordinations)
		return
	}

	chk.Equal(e.ActualSize, r.ActualSize)
	chk.Equal(int64(1), r.Stats.TasksStarted)
	chk.Equal(int64(e.ActualSize), r.Stats.WorkCalls)
	chk.LessOrEqual(r.MaxConcurrency, int64(e.ActualSize))
	chk.Equal(int64(r.Coordinations), r.Stats.GangYields)
	if e.Status == workgang.Completed {
		chk.Equal(int64(1), r.Stats.TasksCompleted)
		chk.Equal(int64(r.Coordinations), r.Stats.TasksContinued)
	} else {
		chk.Equal(int64(1), r.Stats.TasksAborted)
	}

	if e.Exact {
		chk.Equal(e.Yields, r.Coordinations)
		chk.Equal(int64(e.WorkerYields), r.Stats.WorkerYields)
	} else {
		chk.LessOrEqual(r.Coordinations, e.Yields)
		chk.LessOrEqual(r.Stats.WorkerYields, int64(e.WorkerYields))
	}
}
