// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"

	"github.com/petenewcomb/workgang-go"
	"pgregory.net/rapid"
)

// Plan describes a gang and the tasks to run on it in order.
type Plan struct {
	ID             int
	Workers        int
	ProfilerLabels bool
	Tasks          []*TaskPlan
}

// TaskPlan describes one task. Scripts has one entry per requested worker;
// only the first min(RequestedSize, Workers) are ever run.
type TaskPlan struct {
	ID            int
	RequestedSize int
	Scripts       [][]Step

	// AbortAfterYields, if positive, makes the overseer abort the task instead
	// of continuing it once it has yielded that many times.
	AbortAfterYields int
}

// Expectation is the outcome of a task that follows from its plan alone.
type Expectation struct {
	ActualSize int
	Status     workgang.Status

	// Exact is false when an abort point makes the yield counts depend on
	// timing, in which case Yields and WorkerYields are upper bounds.
	Exact        bool
	Yields       int
	WorkerYields int
}

// NewPlan draws a plan using config.
func NewPlan(t *rapid.T, config *Config) *Plan {
	plan := &Plan{
		Workers:        config.Workers.Draw(t, "Plan.Workers"),
		ProfilerLabels: rapid.Bool().Draw(t, "Plan.ProfilerLabels"),
	}
	plan.Tasks = make([]*TaskPlan, config.TaskCount.Draw(t, "Plan.TaskCount"))
	for i := range plan.Tasks {
		plan.Tasks[i] = newTaskPlan(t, config, i)
	}
	return plan
}

func newTaskPlan(t *rapid.T, config *Config, id int) *TaskPlan {
	name := fmt.Sprintf("Task#%d", id)
	tp := &TaskPlan{
		ID:            id,
		RequestedSize: config.RequestedSize.Draw(t, name+".RequestedSize"),
	}

	sc := &config.Script
	isYield := BiasedBool(sc.YieldProbability)
	isAbort := BiasedBool(sc.AbortPointProbability)
	maxYields := 0
	tp.Scripts = make([][]Step, tp.RequestedSize)
	for w := range tp.Scripts {
		scriptName := fmt.Sprintf("%s.Script#%d", name, w)
		script := make([]Step, sc.Length.Draw(t, scriptName+".Length"))
		yields := 0
		for i := range script {
			stepName := fmt.Sprintf("%s.Step#%d", scriptName, i)
			switch {
			case isYield.Draw(t, stepName+".Yield"):
				script[i] = Step{Kind: YieldPoint}
				yields++
			case isAbort.Draw(t, stepName+".Abort"):
				script[i] = Step{Kind: AbortPoint}
			default:
				script[i] = Step{Kind: Spin, Duration: sc.SpinDuration.Draw(t, stepName+".Duration")}
			}
		}
		tp.Scripts[w] = script
		maxYields = max(maxYields, yields)
	}

	if maxYields > 0 && BiasedBool(config.OverseerAbortProbability).Draw(t, name+".OverseerAbort") {
		tp.AbortAfterYields = rapid.IntRange(1, maxYields).Draw(t, name+".AbortAfterYields")
	}
	return tp
}

// Expect returns what running the task on a gang of the given capacity must
// produce.
func (tp *TaskPlan) Expect(workers int) Expectation {
	e := Expectation{
		ActualSize: min(tp.RequestedSize, workers),
		Status:     workgang.Completed,
		Exact:      true,
	}
	if e.ActualSize == 0 {
		e.Status = workgang.Inactive
		return e
	}

	// Every round, each worker that has not finished parks at its next yield
	// point, so the gang yields as often as the busiest script asks to.
	scripts := tp.Scripts[:e.ActualSize]
	counts := make([]int, len(scripts))
	for i, script := range scripts {
		for _, step := range script {
			switch step.Kind {
			case YieldPoint:
				counts[i]++
			case AbortPoint:
				e.Status = workgang.Aborted
				e.Exact = false
			}
		}
		e.Yields = max(e.Yields, counts[i])
	}
	if tp.AbortAfterYields > 0 && tp.AbortAfterYields <= e.Yields {
		e.Status = workgang.Aborted
		e.Yields = tp.AbortAfterYields
	}
	for _, c := range counts {
		e.WorkerYields += min(c, e.Yields)
	}
	return e
}

// Format implements fmt.Formatter. The %#v form lists every script.
func (p *Plan) Format(f fmt.State, verb rune) {
	if verb != 'v' {
		panic("unsupported verb")
	}
	fmt.Fprintf(f, "Plan#%d: workers=%d tasks=%d", p.ID, p.Workers, len(p.Tasks))
	if !f.Flag('#') {
		return
	}
	for _, tp := range p.Tasks {
		fmt.Fprintf(f, "\n  Task#%d: requested=%d", tp.ID, tp.RequestedSize)
		if tp.AbortAfterYields > 0 {
			fmt.Fprintf(f, " abortAfterYields=%d", tp.AbortAfterYields)
		}
		for w, script := range tp.Scripts {
			fmt.Fprintf(f, "\n    worker %d: %v", w, script)
		}
	}
}
