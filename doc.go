// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package workgang provides a gang of worker goroutines that execute one
// long-running task in parallel on behalf of an overseer goroutine, with
// cooperative support for suspending the task and later resuming it, or
// abandoning it altogether.
//
// The overseer dispatches a [Task] with [WorkGang.StartTask], which blocks
// until the gang is quiescent. Each participating worker runs the task's Work
// method. Work polls the task's status at points of its choosing: when another
// worker has yielded it parks via [TaskBase.Yield]; when the task is being
// aborted it returns. Once every participating worker has parked or returned,
// the task's CoordinatorYield runs on the overseer's goroutine and StartTask
// returns with the task Yielded. [WorkGang.ContinueTask] releases the parked
// workers to carry on where they stopped. [WorkGang.AbortTask] forces all
// workers back to their waiting stations.
//
// Yielding is cooperative: the gang never preempts a worker and imposes no
// timeouts. A task whose Work never polls its status can hang the gang.
//
// The gang was designed after the yielding work gangs used by concurrent
// garbage collectors, where marking runs in parallel with the application
// and must periodically step aside, for instance to let a foreground
// collection run. The mark subpackage shows such a task.
package workgang
