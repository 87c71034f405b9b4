package scheduler

import (
	"context"
	"time"
)

// NodeResult is the final record of one subproject.
type NodeResult struct {
	Name       string
	State      State
	Err        error
	SkipReason string
	Start      time.Time
	End        time.Time
}

// Result is the outcome of a Run, in topological order.
type Result struct {
	Target string
	Nodes  []NodeResult
	byName map[string]int
}

func (s *Scheduler) result() *Result {
	res := &Result{Target: s.opts.Target, byName: make(map[string]int, len(s.order))}
	for _, t := range s.order {
		res.byName[t.node.Name()] = len(res.Nodes)
		res.Nodes = append(res.Nodes, NodeResult{
			Name:       t.node.Name(),
			State:      State(t.state.Load()),
			Err:        t.err,
			SkipReason: t.skipReason,
			Start:      t.started,
			End:        t.finished,
		})
	}
	return res
}

// State implements StateSource.
func (r *Result) State(name string) (State, bool) {
	i, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return r.Nodes[i].State, true
}

// Names returns the subprojects in the given state.
func (r *Result) Names(state State) []string {
	var names []string
	for _, n := range r.Nodes {
		if n.State == state {
			names = append(names, n.Name)
		}
	}
	return names
}

// Err returns a *RunError if any subproject failed, context.Canceled if the
// run was cancelled before finishing, and nil otherwise.
func (r *Result) Err() error {
	failed := r.Names(Failed)
	if len(failed) > 0 {
		re := &RunError{Failed: failed, Skipped: r.Names(Skipped)}
		for _, n := range r.Nodes {
			if n.State == Failed && n.Err != nil {
				re.Errs = append(re.Errs, n.Err)
			}
		}
		return re
	}
	for _, n := range r.Nodes {
		if n.State == Skipped && n.SkipReason == "cancelled" {
			return context.Canceled
		}
	}
	return nil
}
