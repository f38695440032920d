// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package workgang

import (
	"context"
	"runtime/pprof"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// worker is one goroutine of a gang. Its slot is its fixed position in the
// gang, which is unrelated to the worker index passed to Task.Work.
type worker struct {
	gang   *WorkGang
	slot   int
	labels *pprof.LabelSet
}

func newWorker(g *WorkGang, slot int, profilerLabels bool) *worker {
	w := &worker{
		gang: g,
		slot: slot,
	}
	if profilerLabels {
		labels := pprof.Labels(
			"workgang", g.name,
			"kind", g.kind.String(),
			"worker", strconv.Itoa(slot),
		)
		w.labels = &labels
	}
	return w
}

// loop waits for dispatches and runs Work until the gang is stopped. The gang
// lock is held except while Work runs and while waiting on the monitor.
func (w *worker) loop() {
	g := w.gang
	defer g.wg.Done()

	g.mu.Lock()
	var seen uint64
	for {
		if g.terminate {
			g.mu.Unlock()
			g.logger.Debug("worker exiting", zap.Int("slot", w.slot))
			return
		}
		if g.task != nil && g.sequence != seen && g.startedWorkers < g.activeWorkers {
			task := g.task
			id := g.startedWorkers
			g.startedWorkers++
			g.stats.WorkCalls++

			g.mu.Unlock()
			elapsed := w.run(task, id)
			g.mu.Lock()

			g.stats.WorkTime += elapsed
			g.noteFinish(task)
		}
		// Either this worker took part in the dispatch or enough others did.
		seen = g.sequence
		g.monitor.Wait()
	}
}

func (w *worker) run(task Task, id int) time.Duration {
	start := time.Now()
	if w.labels == nil {
		task.Work(id)
	} else {
		pprof.Do(context.Background(), *w.labels, func(context.Context) {
			task.Work(id)
		})
	}
	return time.Since(start)
}
