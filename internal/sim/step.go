// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"runtime"
	"time"
)

type StepKind int

const (
	// Spin keeps the worker busy for the step's duration.
	Spin StepKind = iota
	// YieldPoint parks the worker until the overseer continues the task.
	YieldPoint
	// AbortPoint aborts the task from inside Work.
	AbortPoint
)

// Step is one entry of a worker's script.
type Step struct {
	Kind     StepKind
	Duration time.Duration
}

func (s Step) String() string {
	switch s.Kind {
	case Spin:
		return fmt.Sprintf("spin %v", s.Duration)
	case YieldPoint:
		return "yield"
	case AbortPoint:
		return "abort"
	default:
		return "invalid step"
	}
}

func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
