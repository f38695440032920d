// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/petenewcomb/workgang-go"
	"github.com/petenewcomb/workgang-go/internal/sim"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	y = sim.Step{Kind: sim.YieldPoint}
	a = sim.Step{Kind: sim.AbortPoint}
	s = sim.Step{Kind: sim.Spin, Duration: time.Microsecond}
)

func TestExpectCompleted(t *testing.T) {
	chk := require.New(t)
	tp := &sim.TaskPlan{
		RequestedSize: 3,
		Scripts:       [][]sim.Step{{s, y, s}, {y, y, y}, {}},
	}
	e := tp.Expect(8)
	chk.Equal(3, e.ActualSize)
	chk.Equal(workgang.Completed, e.Status)
	chk.True(e.Exact)
	chk.Equal(3, e.Yields)
	chk.Equal(4, e.WorkerYields)
}

func TestExpectClampsToCapacity(t *testing.T) {
	chk := require.New(t)
	tp := &sim.TaskPlan{
		RequestedSize: 3,
		Scripts:       [][]sim.Step{{y}, {}, {a, y, y}},
	}
	// The third script never runs on a two-worker gang.
	e := tp.Expect(2)
	chk.Equal(2, e.ActualSize)
	chk.Equal(workgang.Completed, e.Status)
	chk.Equal(1, e.Yields)
	chk.Equal(1, e.WorkerYields)
}

func TestExpectOverseerAbort(t *testing.T) {
	chk := require.New(t)
	tp := &sim.TaskPlan{
		RequestedSize:    2,
		Scripts:          [][]sim.Step{{y, y, y}, {y}},
		AbortAfterYields: 2,
	}
	e := tp.Expect(2)
	chk.Equal(workgang.Aborted, e.Status)
	chk.True(e.Exact)
	chk.Equal(2, e.Yields)
	chk.Equal(3, e.WorkerYields)
}

func TestExpectAbortPoint(t *testing.T) {
	chk := require.New(t)
	tp := &sim.TaskPlan{
		RequestedSize: 2,
		Scripts:       [][]sim.Step{{y, a, y}, {s}},
	}
	e := tp.Expect(4)
	chk.Equal(workgang.Aborted, e.Status)
	chk.False(e.Exact)
	chk.Equal(2, e.Yields)
}

func TestExpectEmptyDispatch(t *testing.T) {
	chk := require.New(t)
	e := (&sim.TaskPlan{}).Expect(4)
	chk.Equal(0, e.ActualSize)
	chk.Equal(workgang.Inactive, e.Status)
}

func TestNewPlanRespectsConfig(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		config := sim.DefaultConfig
		plan := sim.NewPlan(t, &config)

		chk.GreaterOrEqual(plan.Workers, config.Workers.Min)
		chk.LessOrEqual(plan.Workers, config.Workers.Max)
		chk.GreaterOrEqual(len(plan.Tasks), config.TaskCount.Min)
		chk.LessOrEqual(len(plan.Tasks), config.TaskCount.Max)
		for _, tp := range plan.Tasks {
			chk.Len(tp.Scripts, tp.RequestedSize)
			maxYields := 0
			for _, script := range tp.Scripts {
				chk.LessOrEqual(len(script), config.Script.Length.Max)
				yields := 0
				for _, step := range script {
					if step.Kind == sim.YieldPoint {
						yields++
					}
					if step.Kind == sim.Spin {
						chk.LessOrEqual(step.Duration, config.Script.SpinDuration.Max)
					}
				}
				maxYields = max(maxYields, yields)
			}
			chk.LessOrEqual(tp.AbortAfterYields, maxYields)
		}
	})
}

func TestPlanFormatting(t *testing.T) {
	chk := require.New(t)
	plan := &sim.Plan{
		ID:      7,
		Workers: 2,
		Tasks: []*sim.TaskPlan{{
			ID:               0,
			RequestedSize:    2,
			Scripts:          [][]sim.Step{{s, y}, {a}},
			AbortAfterYields: 1,
		}},
	}
	chk.Equal("Plan#7: workers=2 tasks=1", fmt.Sprintf("%v", plan))
	chk.Equal(`Plan#7: workers=2 tasks=1
  Task#0: requested=2 abortAfterYields=1
    worker 0: [spin 1µs yield]
    worker 1: [abort]`, fmt.Sprintf("%#v", plan))
}

func TestBiasedBoolBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		if sim.BiasedBool(0).Draw(t, "never") {
			t.Fatal("p=0 drew true")
		}
		if !sim.BiasedBool(1).Draw(t, "always") {
			t.Fatal("p=1 drew false")
		}
	})
}
