// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package mark

import (
	"cmp"

	"github.com/addrummond/heap"
	"github.com/gammazero/deque"
)

type stackLoad struct {
	worker int
	depth  int
}

func (a *stackLoad) Cmp(b *stackLoad) int {
	if c := cmp.Compare(a.depth, b.depth); c != 0 {
		return c
	}
	return cmp.Compare(a.worker, b.worker)
}

type pendingNode struct {
	node int
	from int
}

// rebalance spreads the pending nodes of the selected stacks so that no
// selected stack holds more than one node more than another. Returns the
// number of nodes that changed stacks.
func rebalance(stacks []deque.Deque[int], selected []bool) int {
	total, count := 0, 0
	for i := range stacks {
		if selected[i] {
			total += stacks[i].Len()
			count++
		}
	}
	if count < 2 || total == 0 {
		return 0
	}
	target := total / count

	// Cut every stack down to the target, then hand the surplus out to the
	// shallowest stacks first.
	var surplus []pendingNode
	var loads heap.Heap[stackLoad, heap.Min]
	for i := range stacks {
		if !selected[i] {
			continue
		}
		s := &stacks[i]
		for s.Len() > target {
			surplus = append(surplus, pendingNode{node: s.PopBack(), from: i})
		}
		heap.PushOrderable(&loads, stackLoad{worker: i, depth: s.Len()})
	}

	moved := 0
	for len(surplus) > 0 {
		p := surplus[len(surplus)-1]
		surplus = surplus[:len(surplus)-1]

		l, _ := heap.PopOrderable(&loads)
		stacks[l.worker].PushBack(p.node)
		if l.worker != p.from {
			moved++
		}
		l.depth++
		heap.PushOrderable(&loads, l)
	}
	return moved
}
