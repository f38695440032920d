// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/workgang-go"
)

// scriptedTask runs the scripts of a TaskPlan. Each worker index keeps its
// remaining steps in its own queue, which is what lets it pick up where it
// left off after a yield.
type scriptedTask struct {
	workgang.TaskBase
	plan *TaskPlan
	gang *workgang.WorkGang

	queues      []deque.Deque[Step]
	claimed     []atomic.Bool
	concurrency atomic.Int64
	maxConc     atomicMaxInt64
	v           *violations

	coordinations int
}

func newScriptedTask(plan *TaskPlan, gang *workgang.WorkGang, v *violations) *scriptedTask {
	actual := min(plan.RequestedSize, gang.TotalWorkers())
	t := &scriptedTask{
		plan:    plan,
		gang:    gang,
		queues:  make([]deque.Deque[Step], actual),
		claimed: make([]atomic.Bool, actual),
		v:       v,
	}
	for w := range t.queues {
		for _, step := range plan.Scripts[w] {
			t.queues[w].PushBack(step)
		}
	}
	t.SetName(fmt.Sprintf("Task#%d", plan.ID))
	t.SetRequestedSize(plan.RequestedSize)
	return t
}

func (t *scriptedTask) Work(worker int) {
	if worker < 0 || worker >= len(t.queues) {
		t.v.add("%s: worker index %d out of range", t.Name(), worker)
		return
	}
	if !t.claimed[worker].CompareAndSwap(false, true) {
		t.v.add("%s: worker index %d dispatched twice", t.Name(), worker)
	}
	t.maxConc.UpdateMax(t.concurrency.Add(1))
	defer t.concurrency.Add(-1)

	if g := t.Gang(); g != t.gang {
		t.v.add("%s: bound to the wrong gang", t.Name())
	}
	if n := t.gang.ActiveWorkers(); n != t.ActualSize() {
		t.v.add("%s: gang has %d active workers, task was granted %d", t.Name(), n, t.ActualSize())
	}

	queue := &t.queues[worker]
	for queue.Len() > 0 {
		if t.Status() == workgang.Aborting {
			return
		}
		step := queue.PopFront()
		switch step.Kind {
		case Spin:
			spin(step.Duration)
		case YieldPoint:
			t.Yield()
		case AbortPoint:
			t.Abort()
		}
	}
}

func (t *scriptedTask) CoordinatorYield() {
	t.coordinations++
	if s := t.Status(); s != workgang.Yielded {
		t.v.add("%s: coordinator called with status %v", t.Name(), s)
	}
	active, yielded := t.gang.ActiveWorkers(), t.gang.YieldedWorkers()
	if yielded < 1 || yielded > active || active > t.gang.TotalWorkers() {
		t.v.add("%s: yielded=%d active=%d total=%d", t.Name(), yielded, active, t.gang.TotalWorkers())
	}
	if active != t.ActualSize() {
		t.v.add("%s: gang has %d active workers while yielded, task was granted %d", t.Name(), active, t.ActualSize())
	}
}

// violations collects invariant failures observed on worker goroutines, where
// failing the test directly is not allowed.
type violations struct {
	mu   sync.Mutex
	list []string
}

func (v *violations) add(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.list = append(v.list, fmt.Sprintf(format, args...))
}

func (v *violations) drain() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	list := v.list
	v.list = nil
	return list
}

type atomicMaxInt64 struct {
	value atomic.Int64
}

func (mm *atomicMaxInt64) Load() int64 {
	return mm.value.Load()
}

func (mm *atomicMaxInt64) UpdateMax(x int64) {
	for {
		old := mm.value.Load()
		if x <= old || mm.value.CompareAndSwap(old, x) {
			return
		}
	}
}
