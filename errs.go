// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

// Panic values raised when a caller breaks the gang's usage contract.
const (
	panicGangStopped     = "work gang stopped"
	panicTaskCurrent     = "another task is current"
	panicTaskNotInactive = "task is not inactive"
	panicTaskNotCurrent  = "task is not the current task"
	panicTaskNotYielded  = "task is not yielded"
	panicNegativeSize    = "requested size is negative"
	panicInvalidWorkers  = "worker count is less than one"
	panicNilTask         = "task must be non-nil"
)
