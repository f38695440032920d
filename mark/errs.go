// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package mark

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrOverflow is returned by [Run] when a worker's mark stack exceeded
// [Config.MaxStack] and the marking was aborted.
const ErrOverflow = constError("mark stack overflow")

// ErrAborted is returned by [Run] when the marking was aborted by the gang
// rather than by the task itself.
const ErrAborted = constError("marking aborted")

// ErrNodeOutOfRange is returned when a root or edge names a node that is not
// in the graph.
const ErrNodeOutOfRange = constError("node out of range")
