// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

// Status is the run state of a [Task] as seen by its gang.
type Status int32

const (
	Inactive   Status = iota // Not yet dispatched to a gang
	Active                   // At least one worker is executing Work
	Yielding                 // A worker has yielded; the others must follow
	Yielded                  // Every participating worker has yielded or finished
	Aborting                 // Abort requested; workers must return promptly
	Aborted                  // All workers returned after an abort
	Completing               // At least one worker returned normally
	Completed                // All workers returned normally
)

var statusNames = [...]string{
	Inactive:   "INACTIVE",
	Active:     "ACTIVE",
	Yielding:   "YIELDING",
	Yielded:    "YIELDED",
	Aborting:   "ABORTING",
	Aborted:    "ABORTED",
	Completing: "COMPLETING",
	Completed:  "COMPLETED",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "INVALID"
	}
	return statusNames[s]
}

// Terminal reports whether a task in this status can no longer be run.
func (s Status) Terminal() bool {
	return s == Completed || s == Aborted
}

// quiescent reports whether an overseer waiting on the gang may return.
func (s Status) quiescent() bool {
	return s == Yielded || s.Terminal()
}
