// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

import (
	"sync/atomic"
)

// A Task is a unit of coordinated parallel work executed by the workers of a
// [WorkGang]. Implementations embed [TaskBase], which carries the run state
// the gang manipulates, and supply Work and CoordinatorYield:
//
//	type scanTask struct {
//		workgang.TaskBase
//		...
//	}
//
//	func (t *scanTask) Work(worker int)    { ... }
//	func (t *scanTask) CoordinatorYield() { ... }
//
// Work is called concurrently, once per participating worker per dispatch,
// with worker indices in the range [0, ActualSize). It must periodically poll
// [TaskBase.Status] at safe points: on [Yielding] it should record whatever it
// needs to resume and call Yield, which blocks until the overseer continues or
// aborts the task; on [Aborting] it should release what it holds and return.
// Yield and Abort may be shadowed by the implementation as long as the
// shadowing method calls through to the TaskBase version.
//
// A Work function that never polls cannot be yielded or aborted and will hang
// its gang. Panics in Work are not recovered and terminate the program, as for
// any goroutine.
type Task interface {
	// Work performs the given worker's share of the task.
	Work(worker int)

	// CoordinatorYield is called on the overseer's goroutine once all
	// participating workers have yielded or finished, before
	// [WorkGang.StartTask] or [WorkGang.ContinueTask] returns. It is the place
	// for centralized bookkeeping such as merging per-worker partial results.
	CoordinatorYield()

	taskBase() *TaskBase
}

// TaskBase holds the gang-managed state of a [Task]. The zero value is an
// Inactive task requesting zero workers; call [TaskBase.SetRequestedSize]
// before dispatching it.
//
// Status is read atomically so that workers may poll it without holding the
// gang lock. All transitions are made by the gang under its lock.
type TaskBase struct {
	name          string
	status        atomic.Int32
	gang          atomic.Pointer[WorkGang]
	requestedSize atomic.Int64
	actualSize    atomic.Int64
}

func (b *TaskBase) taskBase() *TaskBase {
	return b
}

// SetName sets the name used to identify the task in logs and traces.
func (b *TaskBase) SetName(name string) {
	b.name = name
}

// Name returns the task's name.
func (b *TaskBase) Name() string {
	return b.name
}

// Status returns the current status of the task.
func (b *TaskBase) Status() Status {
	return Status(b.status.Load())
}

func (b *TaskBase) setStatus(s Status) {
	b.status.Store(int32(s))
}

// Active reports whether the task's workers are running unhindered.
func (b *TaskBase) Active() bool {
	return b.Status() == Active
}

// Yielded reports whether every participating worker has yielded or finished
// and the task awaits [WorkGang.ContinueTask].
func (b *TaskBase) Yielded() bool {
	return b.Status() == Yielded
}

// Completed reports whether every worker returned from Work without the task
// being aborted.
func (b *TaskBase) Completed() bool {
	return b.Status() == Completed
}

// Aborted reports whether the task was abandoned.
func (b *TaskBase) Aborted() bool {
	return b.Status() == Aborted
}

// RequestedSize returns the number of workers the task asks for.
func (b *TaskBase) RequestedSize() int {
	return int(b.requestedSize.Load())
}

// SetRequestedSize sets the number of workers the task asks for. It takes
// effect at the next [WorkGang.StartTask] and panics unless the task is
// Inactive.
func (b *TaskBase) SetRequestedSize(n int) {
	if b.Status() != Inactive {
		panic(panicTaskNotInactive)
	}
	b.requestedSize.Store(int64(n))
}

// ActualSize returns the number of workers granted by the most recent
// dispatch, which is never more than the requested size or the gang's
// capacity.
func (b *TaskBase) ActualSize() int {
	return int(b.actualSize.Load())
}

// Gang returns the gang the task is currently bound to, or nil.
func (b *TaskBase) Gang() *WorkGang {
	return b.gang.Load()
}

func (b *TaskBase) setGang(g *WorkGang) {
	if g != nil && b.gang.Load() != nil {
		panic("task already bound to a gang")
	}
	b.gang.Store(g)
}

// Yield parks the calling worker until the overseer continues or aborts the
// task. Callers should save their continuation state first. If the task is
// being aborted the request is ignored and Yield returns immediately. Yield
// must only be called from within Work.
func (b *TaskBase) Yield() {
	g := b.gang.Load()
	if g == nil {
		panic("no gang to yield to")
	}
	g.yield(b)
}

// Abort requests that all workers abandon the task. It may be called from
// within Work when an exceptional condition makes continuing pointless, or
// from CoordinatorYield, in which case the pending StartTask or ContinueTask
// returns once the task is Aborted instead of Yielded. Calling Abort more than
// once has no additional effect.
func (b *TaskBase) Abort() {
	g := b.gang.Load()
	if g == nil {
		if b.Status() == Aborted {
			return
		}
		panic("no gang to abort")
	}
	g.abort(b)
}
