// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// A WorkGang is a fixed set of worker goroutines that cooperatively execute
// one [Task] at a time on behalf of an overseer, the goroutine that calls
// [WorkGang.StartTask], [WorkGang.ContinueTask] and [WorkGang.AbortTask].
// Those calls block until the gang is quiescent: every participating worker
// has either returned from Work or is parked in [TaskBase.Yield].
//
// All coordination state is guarded by a single mutex and condition variable.
// Workers never reference one another, only the gang.
//
// A WorkGang must be created with [NewWorkGang] and should be released with
// [WorkGang.Stop].
type WorkGang struct {
	name   string
	kind   Kind
	logger *zap.Logger

	mu      sync.Mutex
	monitor *sync.Cond
	workers []*worker
	wg      sync.WaitGroup

	task            Task
	sequence        uint64
	activeWorkers   int
	yieldedWorkers  int
	yieldEpoch      uint64
	coordinating    bool
	startedWorkers  int
	finishedWorkers int
	terminate       bool
	stats           Stats
}

// NewWorkGang creates a gang with the given number of workers and starts
// their goroutines. The name and kind identify the gang in logs and profiles.
// Panics if workers is less than one.
func NewWorkGang(name string, workers int, kind Kind, opts ...Option) *WorkGang {
	if workers < 1 {
		panic(panicInvalidWorkers)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	g := &WorkGang{
		name:   name,
		kind:   kind,
		logger: o.logger.With(zap.String("gang", name), zap.Stringer("kind", kind)),
	}
	g.monitor = sync.NewCond(&g.mu)
	g.workers = make([]*worker, workers)
	for i := range g.workers {
		g.workers[i] = newWorker(g, i, o.profilerLabels)
	}

	g.wg.Add(workers)
	for _, w := range g.workers {
		go w.loop()
	}
	g.logger.Debug("gang started", zap.Int("workers", workers))
	return g
}

// Name returns the gang's name.
func (g *WorkGang) Name() string {
	return g.name
}

// Kind returns the gang's kind.
func (g *WorkGang) Kind() Kind {
	return g.kind
}

// TotalWorkers returns the gang's fixed capacity.
func (g *WorkGang) TotalWorkers() int {
	return len(g.workers)
}

// ActiveWorkers returns the number of workers granted to the current task, or
// zero if no task is current.
func (g *WorkGang) ActiveWorkers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeWorkers
}

// YieldedWorkers returns the number of workers currently parked in Yield.
func (g *WorkGang) YieldedWorkers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.yieldedWorkers
}

// Task returns the current task, or nil. A task is current from the moment it
// is started until it completes or is aborted, including while it is yielded.
func (g *WorkGang) Task() Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.task
}

// Stats returns a snapshot of the gang's cumulative activity.
func (g *WorkGang) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// StartTask dispatches task to min(task.RequestedSize(), TotalWorkers())
// workers and blocks until the task has completed, yielded, or been aborted.
// A yielded task is resumed with [WorkGang.ContinueTask]. If the task
// requests zero workers StartTask returns immediately and the task remains
// Inactive.
//
// StartTask panics if the gang has been stopped, if another task is current,
// or if the task is not Inactive.
func (g *WorkGang) StartTask(task Task) {
	if task == nil {
		panic(panicNilTask)
	}
	b := task.taskBase()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.terminate {
		panic(panicGangStopped)
	}
	if g.task != nil {
		panic(panicTaskCurrent)
	}
	if b.Status() != Inactive {
		panic(panicTaskNotInactive)
	}
	requested := b.RequestedSize()
	if requested < 0 {
		panic(panicNegativeSize)
	}
	if requested == 0 {
		g.logger.Debug("empty dispatch ignored", zap.String("task", b.Name()))
		return
	}

	actual := min(requested, len(g.workers))
	b.setGang(g)
	b.actualSize.Store(int64(actual))
	b.setStatus(Active)
	g.task = task
	g.activeWorkers = actual
	g.startedWorkers = 0
	g.finishedWorkers = 0
	g.yieldedWorkers = 0
	g.sequence++
	g.stats.TasksStarted++
	g.logger.Debug("task dispatched",
		zap.String("task", b.Name()),
		zap.Int("requested_size", requested),
		zap.Int("actual_size", actual))

	g.monitor.Broadcast()
	g.waitForGang()
}

// ContinueTask resumes a yielded task: the parked workers return from Yield
// and carry on from their continuation state. It blocks with the same
// semantics as [WorkGang.StartTask].
//
// ContinueTask panics unless task is the gang's current task and is Yielded.
func (g *WorkGang) ContinueTask(task Task) {
	if task == nil {
		panic(panicNilTask)
	}
	b := task.taskBase()

	g.mu.Lock()
	defer g.mu.Unlock()

	if b.Status() != Yielded {
		panic(panicTaskNotYielded)
	}
	if g.task == nil || g.task.taskBase() != b {
		panic(panicTaskNotCurrent)
	}

	b.setStatus(Active)
	g.stats.TasksContinued++
	g.logger.Debug("task continued",
		zap.String("task", b.Name()),
		zap.Int("yielded_workers", g.yieldedWorkers))

	g.releaseYielded()
	g.waitForGang()
}

// AbortTask aborts the current task, if any, and blocks until every worker
// has returned from Work and the task is Aborted. The gang then has no current
// task. AbortTask may be called while the task is yielded, or from another
// goroutine while the overseer is blocked in StartTask or ContinueTask, in
// which case that call also returns once the task is Aborted. If the task's
// CoordinatorYield is running, AbortTask waits for it to return before
// releasing any worker, so it must not be called from CoordinatorYield; use
// [TaskBase.Abort] there instead.
//
// Calling AbortTask when no task is current has no effect.
func (g *WorkGang) AbortTask() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abortTask()
}

// Stop aborts the current task, if any, then terminates and joins all
// workers. Calling Stop more than once has no additional effect.
func (g *WorkGang) Stop() {
	g.mu.Lock()
	if !g.terminate {
		g.abortTask()
		g.terminate = true
		g.monitor.Broadcast()
	}
	g.mu.Unlock()
	g.wg.Wait()
	g.logger.Debug("gang stopped")
}

func (g *WorkGang) abortTask() {
	start := time.Now()
	// Workers stay parked until the coordinator is done with their state.
	for g.coordinating {
		g.monitor.Wait()
	}
	task := g.task
	if task == nil {
		return
	}
	b := task.taskBase()

	switch s := b.Status(); s {
	case Active, Yielding, Yielded, Completing:
		b.setStatus(Aborting)
		g.logger.Debug("task aborting",
			zap.String("task", b.Name()),
			zap.Stringer("previous_status", s))
	case Aborting:
	default:
		panic("current task has status " + s.String())
	}
	g.releaseYielded()

	for b.Status() != Aborted {
		g.monitor.Wait()
	}
	g.stats.OverseerWait += time.Since(start)
}

// waitForGang blocks until the current task is quiescent. If it yielded, the
// task's CoordinatorYield is run before returning, and if the coordinator
// aborted the task waitForGang also waits for it to become Aborted. Must be
// called with g.mu held.
func (g *WorkGang) waitForGang() {
	task := g.task
	b := task.taskBase()

	start := time.Now()
	for !b.Status().quiescent() {
		g.monitor.Wait()
	}
	g.stats.OverseerWait += time.Since(start)

	if b.Status() != Yielded {
		return
	}
	if g.yieldedWorkers == 0 || g.yieldedWorkers+g.finishedWorkers != g.activeWorkers {
		panic("inconsistent worker counts for yielded task")
	}
	g.logger.Debug("task yielded",
		zap.String("task", b.Name()),
		zap.Int("yielded_workers", g.yieldedWorkers),
		zap.Int("finished_workers", g.finishedWorkers))
	g.coordinatorYield(task)

	if b.Status() == Aborting {
		start = time.Now()
		g.releaseYielded()
		for b.Status() != Aborted {
			g.monitor.Wait()
		}
		g.stats.OverseerWait += time.Since(start)
	}
}

// coordinatorYield runs the task's CoordinatorYield without the gang lock.
// While it runs, g.coordinating holds off anything that would release the
// parked workers.
func (g *WorkGang) coordinatorYield(task Task) {
	g.coordinating = true
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.coordinating = false
		g.monitor.Broadcast()
	}()
	task.CoordinatorYield()
}

// yield parks a worker of the current task. See [TaskBase.Yield].
func (g *WorkGang) yield(b *TaskBase) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.task == nil || g.task.taskBase() != b {
		panic(panicTaskNotCurrent)
	}
	if g.yieldedWorkers >= g.activeWorkers {
		panic("more yielded workers than active workers")
	}
	if b.Status() == Aborting {
		// Returning promptly matters more than honoring the yield.
		return
	}

	g.yieldedWorkers++
	g.stats.WorkerYields++
	if g.yieldedWorkers+g.finishedWorkers == g.activeWorkers {
		b.setStatus(Yielded)
		g.stats.GangYields++
		g.monitor.Broadcast()
	} else {
		b.setStatus(Yielding)
	}

	// Parked until ContinueTask or an abort releases the yielded workers.
	epoch := g.yieldEpoch
	for g.yieldEpoch == epoch {
		g.monitor.Wait()
	}
	switch s := b.Status(); s {
	case Active, Aborting, Completing, Yielding:
	default:
		panic("yielded worker woke to task status " + s.String())
	}
}

// releaseYielded lets every parked worker return from Yield. Parked workers
// stop counting as yielded immediately, so a worker that yields again before
// the others have woken does not see them as still parked. Must be called with
// g.mu held.
func (g *WorkGang) releaseYielded() {
	if g.yieldedWorkers > 0 {
		g.yieldedWorkers = 0
		g.yieldEpoch++
	}
	g.monitor.Broadcast()
}

// abort marks the current task Aborting on behalf of one of its workers. See
// [TaskBase.Abort].
func (g *WorkGang) abort(b *TaskBase) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.task == nil || g.task.taskBase() != b {
		panic(panicTaskNotCurrent)
	}
	switch prev := b.Status(); prev {
	case Active, Aborting, Completing, Yielding, Yielded:
		b.setStatus(Aborting)
		// Parked workers must go back to Work and notice the abort. While the
		// coordinator is running they stay parked until it returns.
		if (prev == Yielding || prev == Yielded) && !g.coordinating {
			g.releaseYielded()
		}
		if prev != Aborting {
			g.logger.Debug("task aborting",
				zap.String("task", b.Name()),
				zap.Stringer("previous_status", prev))
		}
	default:
		panic("cannot abort task with status " + prev.String())
	}
}

// noteFinish accounts for a worker returning from Work and advances the task
// status accordingly. Must be called with g.mu held.
func (g *WorkGang) noteFinish(task Task) {
	b := task.taskBase()
	if g.task == nil || g.task.taskBase() != b {
		panic("confused task binding")
	}
	g.finishedWorkers++

	status := b.Status()
	if g.finishedWorkers == g.activeWorkers {
		switch status {
		case Aborting:
			b.setStatus(Aborted)
			g.stats.TasksAborted++
		case Active, Completing:
			b.setStatus(Completed)
			g.stats.TasksCompleted++
		default:
			panic("last worker finished with task status " + status.String())
		}
		g.logger.Debug("task finished",
			zap.String("task", b.Name()),
			zap.Stringer("status", b.Status()))
		g.reset()
		g.monitor.Broadcast()
		return
	}

	switch status {
	case Active:
		b.setStatus(Completing)
	case Yielding:
		if g.finishedWorkers+g.yieldedWorkers == g.activeWorkers {
			b.setStatus(Yielded)
			g.stats.GangYields++
			g.monitor.Broadcast()
		}
	case Aborting, Completing:
	default:
		panic("worker finished with task status " + status.String())
	}
}

// reset unbinds the finished task from the gang.
func (g *WorkGang) reset() {
	if g.yieldedWorkers != 0 {
		panic("task finished with yielded workers")
	}
	g.task.taskBase().setGang(nil)
	g.task = nil
	g.activeWorkers = 0
	g.startedWorkers = 0
	g.finishedWorkers = 0
}
