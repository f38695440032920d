// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package mark

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/workgang-go"
)

// Graph is a directed graph whose nodes are numbered from zero. Edges[i] lists
// the successors of node i.
type Graph struct {
	Edges [][]int
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Edges)
}

// Validate checks that every edge names a node in the graph.
func (g *Graph) Validate() error {
	n := len(g.Edges)
	for from, succs := range g.Edges {
		for _, to := range succs {
			if to < 0 || to >= n {
				return fmt.Errorf("%w: edge %d->%d", ErrNodeOutOfRange, from, to)
			}
		}
	}
	return nil
}

// Task marks the nodes of a graph reachable from a set of roots. Create one
// with [NewTask] and run it with [Run], or dispatch it directly on a gang.
type Task struct {
	workgang.TaskBase

	graph  *Graph
	roots  []int
	config Config

	marked []atomic.Bool
	once   sync.Once
	stacks []deque.Deque[int]
	parked []bool

	yieldRequested atomic.Bool
	overflowed     atomic.Bool
	pending        atomic.Int64
	scanned        atomic.Int64
	coordinations  int
	rebalanced     int
}

// NewTask prepares a marking of graph from roots. The graph must not be
// modified until the task has finished.
func NewTask(graph *Graph, roots []int, config Config) (*Task, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	for _, r := range roots {
		if r < 0 || r >= graph.NodeCount() {
			return nil, fmt.Errorf("%w: root %d", ErrNodeOutOfRange, r)
		}
	}
	t := &Task{
		graph:  graph,
		roots:  roots,
		config: config,
		marked: make([]atomic.Bool, graph.NodeCount()),
	}
	t.SetName("mark")
	t.SetRequestedSize(config.Workers)
	return t, nil
}

// Run marks on the given gang, continuing the task each time it yields, and
// returns once the marking has completed or been aborted. If the task was
// configured with zero workers it requests the whole gang.
func Run(gang *workgang.WorkGang, t *Task) error {
	if t.RequestedSize() <= 0 {
		t.SetRequestedSize(gang.TotalWorkers())
	}
	gang.StartTask(t)
	for t.Yielded() {
		gang.ContinueTask(t)
	}
	switch {
	case t.Completed():
		return nil
	case t.overflowed.Load():
		return ErrOverflow
	default:
		return ErrAborted
	}
}

// RequestYield asks every worker to park at its next safe point. It may be
// called from any goroutine. The request is cleared when the workers have
// parked.
func (t *Task) RequestYield() {
	t.yieldRequested.Store(true)
}

func (t *Task) Work(worker int) {
	t.distributeRoots()
	stack := &t.stacks[worker]

	sinceResume := 0
	for {
		status := t.Status()
		if status == workgang.Aborting {
			t.pending.Add(-int64(stack.Len()))
			stack.Clear()
			return
		}

		// Honor yields only after making progress, so that repeated requests
		// cannot starve the marking.
		mustYield := status == workgang.Yielding ||
			t.yieldRequested.Load() ||
			(t.config.YieldEvery > 0 && sinceResume >= t.config.YieldEvery)
		if mustYield && (sinceResume > 0 || stack.Len() == 0) {
			t.park(worker)
			sinceResume = 0
			continue
		}

		if stack.Len() == 0 {
			if t.config.IdleYield && t.pending.Load() > 0 {
				t.RequestYield()
				t.park(worker)
				sinceResume = 0
				continue
			}
			return
		}

		node := stack.PopBack()
		sinceResume++
		t.scanned.Add(1)
		for _, succ := range t.graph.Edges[node] {
			if !t.mark(stack, succ) {
				return
			}
		}
		t.pending.Add(-1)
	}
}

// distributeRoots sizes the per-worker state for the granted gang size and
// deals the roots out round-robin. Only the first worker to arrive does this.
func (t *Task) distributeRoots() {
	t.once.Do(func() {
		n := t.ActualSize()
		t.stacks = make([]deque.Deque[int], n)
		t.parked = make([]bool, n)
		for i, r := range t.roots {
			if !t.mark(&t.stacks[i%n], r) {
				return
			}
		}
	})
}

// mark marks node and pushes it if this worker claimed it. Returns false if
// the push would overflow the stack, in which case the task has been aborted.
func (t *Task) mark(stack *deque.Deque[int], node int) bool {
	if !t.marked[node].CompareAndSwap(false, true) {
		return true
	}
	if t.config.MaxStack > 0 && stack.Len() >= t.config.MaxStack {
		t.overflowed.Store(true)
		t.Abort()
		t.pending.Add(-int64(stack.Len()))
		stack.Clear()
		return false
	}
	stack.PushBack(node)
	t.pending.Add(1)
	return true
}

func (t *Task) park(worker int) {
	t.parked[worker] = true
	t.Yield()
	t.parked[worker] = false
}

// CoordinatorYield clears any pending yield request and spreads the pending
// nodes of the parked workers evenly across them.
func (t *Task) CoordinatorYield() {
	t.yieldRequested.Store(false)
	t.coordinations++
	t.rebalanced += rebalance(t.stacks, t.parked)
}

// Marked reports whether node was found reachable.
func (t *Task) Marked(node int) bool {
	return t.marked[node].Load()
}

// MarkedCount returns the number of nodes found reachable so far.
func (t *Task) MarkedCount() int {
	n := 0
	for i := range t.marked {
		if t.marked[i].Load() {
			n++
		}
	}
	return n
}

// Scanned returns the number of nodes whose successors have been traced.
func (t *Task) Scanned() int64 {
	return t.scanned.Load()
}

// Coordinations returns the number of times the marking yielded. It must be
// called from the overseer's goroutine.
func (t *Task) Coordinations() int {
	return t.coordinations
}

// Rebalanced returns the number of pending nodes moved between workers while
// yielded. It must be called from the overseer's goroutine.
func (t *Task) Rebalanced() int {
	return t.rebalanced
}
