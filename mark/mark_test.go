// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package mark_test

import (
	"sync"
	"testing"
	"time"

	"github.com/petenewcomb/workgang-go"
	"github.com/petenewcomb/workgang-go/mark"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// reachable computes the expected marking sequentially.
func reachable(graph *mark.Graph, roots []int) []bool {
	seen := make([]bool, graph.NodeCount())
	queue := append([]int(nil), roots...)
	for _, r := range roots {
		seen[r] = true
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, s := range graph.Edges[n] {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
	return seen
}

func drawGraph(t *rapid.T) *mark.Graph {
	n := rapid.IntRange(1, 60).Draw(t, "nodes")
	edges := make([][]int, n)
	for i := range edges {
		edges[i] = rapid.SliceOfN(rapid.IntRange(0, n-1), 0, 4).Draw(t, "edges")
	}
	return &mark.Graph{Edges: edges}
}

func chain(n int) *mark.Graph {
	edges := make([][]int, n)
	for i := 0; i+1 < n; i++ {
		edges[i] = []int{i + 1}
	}
	return &mark.Graph{Edges: edges}
}

func TestMarkMatchesSequentialReachability(t *testing.T) {
	gang := workgang.NewWorkGang("mark", 4, workgang.GCTask)
	defer gang.Stop()

	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		graph := drawGraph(t)
		roots := rapid.SliceOfN(rapid.IntRange(0, graph.NodeCount()-1), 0, 6).Draw(t, "roots")
		config := mark.DefaultConfig
		config.Workers = rapid.IntRange(0, 6).Draw(t, "workers")
		config.YieldEvery = rapid.IntRange(0, 5).Draw(t, "yieldEvery")
		config.IdleYield = rapid.Bool().Draw(t, "idleYield")

		task, err := mark.NewTask(graph, roots, config)
		chk.NoError(err)
		chk.NoError(mark.Run(gang, task))
		chk.True(task.Completed())

		expected := reachable(graph, roots)
		count := 0
		for i, want := range expected {
			chk.Equal(want, task.Marked(i), "node %d", i)
			if want {
				count++
			}
		}
		chk.Equal(count, task.MarkedCount())
		chk.Equal(int64(count), task.Scanned())
		chk.Equal(0, gang.ActiveWorkers())
	})
}

func TestMarkPeriodicYields(t *testing.T) {
	chk := require.New(t)
	gang := workgang.NewWorkGang("mark-yield", 3, workgang.GCTask)
	defer gang.Stop()

	graph := chain(50)
	config := mark.DefaultConfig
	config.YieldEvery = 1
	task, err := mark.NewTask(graph, []int{0}, config)
	chk.NoError(err)
	chk.NoError(mark.Run(gang, task))

	chk.Equal(50, task.MarkedCount())
	chk.GreaterOrEqual(task.Coordinations(), 50)
	chk.Equal(int64(task.Coordinations()), gang.Stats().GangYields)
}

func TestMarkRebalancesWhileYielded(t *testing.T) {
	chk := require.New(t)
	gang := workgang.NewWorkGang("mark-balance", 4, workgang.GCTask)
	defer gang.Stop()

	// A single root fanning out to many chains leaves all pending work on one
	// worker's stack. Requesting a yield up front parks that worker right
	// after it scans the root, and the idle workers keep asking for more.
	const fanout = 64
	const depth = 20
	edges := make([][]int, 1+fanout*depth)
	for c := range fanout {
		head := 1 + c*depth
		edges[0] = append(edges[0], head)
		for d := 0; d+1 < depth; d++ {
			edges[head+d] = []int{head + d + 1}
		}
	}
	graph := &mark.Graph{Edges: edges}

	config := mark.DefaultConfig
	config.IdleYield = true
	task, err := mark.NewTask(graph, []int{0}, config)
	chk.NoError(err)
	task.RequestYield()
	chk.NoError(mark.Run(gang, task))

	chk.Equal(graph.NodeCount(), task.MarkedCount())
	chk.Positive(task.Coordinations())
	chk.GreaterOrEqual(task.Rebalanced(), fanout/2)
}

func TestMarkExternalYieldRequests(t *testing.T) {
	chk := require.New(t)
	gang := workgang.NewWorkGang("mark-external", 4, workgang.GCTask)
	defer gang.Stop()

	graph := chain(5000)
	task, err := mark.NewTask(graph, []int{0}, mark.DefaultConfig)
	chk.NoError(err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				task.RequestYield()
				time.Sleep(50 * time.Microsecond)
			}
		}
	}()

	err = mark.Run(gang, task)
	close(done)
	wg.Wait()

	chk.NoError(err)
	chk.Equal(5000, task.MarkedCount())
}

func TestMarkOverflowAborts(t *testing.T) {
	chk := require.New(t)
	gang := workgang.NewWorkGang("mark-overflow", 2, workgang.GCTask)
	defer gang.Stop()

	edges := make([][]int, 101)
	for i := 1; i <= 100; i++ {
		edges[0] = append(edges[0], i)
	}
	config := mark.DefaultConfig
	config.MaxStack = 10
	task, err := mark.NewTask(&mark.Graph{Edges: edges}, []int{0}, config)
	chk.NoError(err)

	chk.ErrorIs(mark.Run(gang, task), mark.ErrOverflow)
	chk.True(task.Aborted())
	chk.Nil(gang.Task())
	chk.Equal(int64(1), gang.Stats().TasksAborted)
}

func TestMarkAbortedByGang(t *testing.T) {
	chk := require.New(t)
	gang := workgang.NewWorkGang("mark-abort", 2, workgang.GCTask)
	defer gang.Stop()

	task, err := mark.NewTask(chain(10), []int{0}, mark.DefaultConfig)
	chk.NoError(err)
	task.SetRequestedSize(2)
	task.RequestYield()
	gang.StartTask(task)
	chk.True(task.Yielded())

	gang.AbortTask()
	chk.True(task.Aborted())
}

func TestMarkRejectsBadNodes(t *testing.T) {
	chk := require.New(t)

	_, err := mark.NewTask(&mark.Graph{Edges: [][]int{{1}}}, nil, mark.DefaultConfig)
	chk.ErrorIs(err, mark.ErrNodeOutOfRange)

	_, err = mark.NewTask(chain(3), []int{3}, mark.DefaultConfig)
	chk.ErrorIs(err, mark.ErrNodeOutOfRange)
}
