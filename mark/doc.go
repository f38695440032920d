// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package mark computes the set of nodes reachable from a root set using a
// [workgang.WorkGang], in the manner of the concurrent marking phase of a
// tracing garbage collector. Each worker traces from its own stack of pending
// nodes. The marking can be suspended at any time with [Task.RequestYield] and
// is suspended automatically every [Config.YieldEvery] nodes per worker; while
// suspended the pending work is rebalanced across the parked workers. A worker
// whose stack grows beyond [Config.MaxStack] aborts the marking.
package mark
