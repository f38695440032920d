// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

import (
	"time"
)

// Stats is a snapshot of a gang's cumulative activity. All counts start at
// zero when the gang is created.
type Stats struct {
	TasksStarted   int64 // dispatches by StartTask with a non-zero size
	TasksContinued int64 // calls to ContinueTask
	TasksCompleted int64 // tasks that reached Completed
	TasksAborted   int64 // tasks that reached Aborted
	GangYields     int64 // transitions to Yielded
	WorkerYields   int64 // individual worker parks in Yield
	WorkCalls      int64 // invocations of Task.Work

	// Time the overseer spent blocked waiting for the gang to quiesce,
	// summed over StartTask, ContinueTask and AbortTask.
	OverseerWait time.Duration

	// Time workers spent inside Task.Work, summed over all workers. Time spent
	// parked in Yield is included.
	WorkTime time.Duration
}

// Sub returns the activity that happened between an earlier snapshot and s.
func (s Stats) Sub(earlier Stats) Stats {
	return Stats{
		TasksStarted:   s.TasksStarted - earlier.TasksStarted,
		TasksContinued: s.TasksContinued - earlier.TasksContinued,
		TasksCompleted: s.TasksCompleted - earlier.TasksCompleted,
		TasksAborted:   s.TasksAborted - earlier.TasksAborted,
		GangYields:     s.GangYields - earlier.GangYields,
		WorkerYields:   s.WorkerYields - earlier.WorkerYields,
		WorkCalls:      s.WorkCalls - earlier.WorkCalls,
		OverseerWait:   s.OverseerWait - earlier.OverseerWait,
		WorkTime:       s.WorkTime - earlier.WorkTime,
	}
}
