// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package mark

// DefaultConfig requests every worker of the gang and bounds each mark stack
// at 64Ki nodes. It never yields on its own.
var DefaultConfig = Config{
	Workers:    0,
	MaxStack:   1 << 16,
	YieldEvery: 0,
}

type Config struct {
	// Workers is the number of workers to request. Zero or less requests the
	// whole gang.
	Workers int

	// MaxStack is the number of pending nodes a single worker may hold before
	// the marking is aborted with ErrOverflow. Zero means unbounded.
	MaxStack int

	// YieldEvery makes each worker yield after scanning that many nodes since
	// it last resumed. Zero disables periodic yields.
	YieldEvery int

	// IdleYield makes a worker that runs out of nodes while others still
	// have pending ones request a yield, so that the pending nodes are
	// rebalanced onto it, instead of returning.
	IdleYield bool
}
