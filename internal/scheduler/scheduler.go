package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/dag"
)

// Job is everything a Builder needs to build one subproject for one target.
type Job struct {
	Subproject *config.Subproject
	Target     string
	SourceDir  string
	BinaryDir  string
	StageDir   string
	// LogFile receives the combined output of every phase.
	LogFile   string
	Interface *ResolvedInterface
}

// Builder runs the phases of one subproject. A failing phase is reported
// as a *BuildFailure.
type Builder interface {
	Build(ctx context.Context, job *Job) error
}

// Transition describes one state change, delivered to Options.OnTransition.
type Transition struct {
	Subproject string
	From, To   State
	Err        error
}

// Options configures a Scheduler.
type Options struct {
	// JobLimit is the number of concurrently running builds.
	JobLimit int
	Target   string
	Layout   config.Layout
	Builder  Builder
	// StateFile, if set, receives the terminal states at the end of Run.
	StateFile string
	// OnTransition, if set, is called for every state change. It must not
	// block.
	OnTransition func(Transition)
}

type task struct {
	node  *dag.Node
	state atomic.Int32
	// pending counts gating dependencies that are not complete yet.
	pending    atomic.Int32
	gates      []*task
	dependents []*task
	done       chan struct{}
	settle     sync.Once

	// Written once before done is closed.
	err        error
	started    time.Time
	finished   time.Time
	skipReason string
}

// Scheduler executes a plan. It is single-use: call Run once.
type Scheduler struct {
	plan    *dag.Plan
	opts    Options
	tasks   map[string]*task
	order   []*task
	ifaces  map[string]*ResolvedInterface
	ready   chan *task
	wg      sync.WaitGroup
	started atomic.Bool
}

// New prepares a scheduler for the plan.
func New(plan *dag.Plan, opts Options) (*Scheduler, error) {
	if opts.Builder == nil {
		return nil, errors.New("scheduler: builder is required")
	}
	if opts.JobLimit <= 0 {
		opts.JobLimit = 1
	}
	if opts.Target == "" {
		opts.Target = config.GenericTarget
	}

	s := &Scheduler{
		plan:   plan,
		opts:   opts,
		tasks:  make(map[string]*task, plan.Len()),
		ifaces: ResolveInterfaces(plan, opts.Layout, opts.Target),
		ready:  make(chan *task, plan.Len()),
	}
	for _, n := range plan.Nodes() {
		t := &task{node: n, done: make(chan struct{})}
		s.tasks[n.Name()] = t
		s.order = append(s.order, t)
	}
	for _, t := range s.order {
		for _, e := range t.node.Dependents {
			s.tasks[e.Name].gates = append(s.tasks[e.Name].gates, t)
			t.dependents = append(t.dependents, s.tasks[e.Name])
		}
	}
	// gates above holds every dependency; keep only the gating ones.
	for _, t := range s.order {
		gating := t.gates[:0]
		for _, dep := range t.gates {
			if s.gatedBy(t, dep) {
				gating = append(gating, dep)
			}
		}
		t.gates = gating
		t.pending.Store(int32(len(gating)))
	}
	return s, nil
}

// gatedBy reports whether dep must be complete before t can be activated.
func (s *Scheduler) gatedBy(t, dep *task) bool {
	for _, e := range t.node.Deps {
		if e.Name != dep.node.Name() {
			continue
		}
		return e.Kind == dag.Build || !dep.node.Subproject.Background
	}
	return false
}

// Run is a shorthand for New followed by Scheduler.Run.
func Run(ctx context.Context, plan *dag.Plan, opts Options) (*Result, error) {
	s, err := New(plan, opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

// Run builds every subproject of the plan and blocks until all of them are
// terminal.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("scheduler: Run called twice")
	}
	logger := ctxlog.FromContext(ctx)
	defer close(s.ready)

	s.wg.Add(len(s.order))
	for _, t := range s.order {
		if len(t.gates) == 0 {
			s.activate(ctx, t)
		}
	}

	logger.Debug("Starting worker pool.", "workers", s.opts.JobLimit, "subprojects", len(s.order))
	for i := 0; i < s.opts.JobLimit; i++ {
		go s.worker(ctx, i)
	}

	allDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-ctx.Done():
		logger.Warn("Build cancelled, skipping subprojects that have not started.")
		for _, t := range s.order {
			s.skip(ctx, t, "cancelled")
		}
		<-allDone
	}
	logger.Info("All subprojects settled.")

	res := s.result()
	if s.opts.StateFile != "" {
		if err := SaveState(s.opts.StateFile, s.opts.Target, res); err != nil {
			return res, err
		}
	}
	return res, res.Err()
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for t := range s.ready {
		if ctx.Err() != nil {
			s.skip(ctx, t, "cancelled")
			continue
		}
		if !s.transition(t, Activated, Building) {
			// Skipped while queued.
			continue
		}
		name := t.node.Name()
		taskCtx, taskLogger := ctxlog.With(ctx, "workerID", workerID, "subproject", name)
		taskLogger.Info("Building subproject.", "background", t.node.Subproject.Background)

		t.started = time.Now()
		err := s.opts.Builder.Build(taskCtx, s.job(t))
		t.finished = time.Now()

		if err != nil {
			taskLogger.Error("Subproject build failed.", "error", err)
			t.err = err
			s.finish(t, Failed)
			s.skipDependents(taskCtx, t)
			continue
		}

		taskLogger.Info("Subproject complete.", "duration", t.finished.Sub(t.started).Round(time.Millisecond))
		s.finish(t, Complete)
		for _, dep := range t.dependents {
			if !s.gatedBy(dep, t) {
				continue
			}
			if dep.pending.Add(-1) == 0 {
				taskLogger.Debug("Unlocking dependent subproject.", "dependent", dep.node.Name())
				s.activate(ctx, dep)
			}
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (s *Scheduler) job(t *task) *Job {
	sp := t.node.Subproject
	return &Job{
		Subproject: sp,
		Target:     s.opts.Target,
		SourceDir:  s.opts.Layout.SourceDir(sp),
		BinaryDir:  s.opts.Layout.BinaryDir(s.opts.Target, sp),
		StageDir:   s.opts.Layout.StageDir(s.opts.Target, sp),
		LogFile:    filepath.Join(s.opts.Layout.TargetRoot(s.opts.Target), "logs", sp.Name+".log"),
		Interface:  s.ifaces[sp.Name],
	}
}

func (s *Scheduler) activate(ctx context.Context, t *task) {
	if ctx.Err() != nil {
		s.skip(ctx, t, "cancelled")
		return
	}
	if s.transition(t, Declared, Activated) {
		s.ready <- t
	}
}

// skipDependents skips every transitive dependent of t that has not
// started. Running dependents are left alone but the walk continues
// through them.
func (s *Scheduler) skipDependents(ctx context.Context, t *task) {
	visited := make(map[*task]bool)
	var walk func(from *task)
	walk = func(from *task) {
		for _, dep := range from.dependents {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			s.skip(ctx, dep, fmt.Sprintf("upstream failure of %q", t.node.Name()))
			walk(dep)
		}
	}
	walk(t)
}

func (s *Scheduler) skip(ctx context.Context, t *task, reason string) {
	for {
		cur := State(t.state.Load())
		if cur != Declared && cur != Activated {
			return
		}
		if s.transition(t, cur, Skipped) {
			ctxlog.FromContext(ctx).Warn("Skipping subproject.", "subproject", t.node.Name(), "reason", reason)
			t.skipReason = reason
			s.settleTask(t)
			return
		}
	}
}

func (s *Scheduler) finish(t *task, to State) {
	s.transition(t, Building, to)
	s.settleTask(t)
}

func (s *Scheduler) transition(t *task, from, to State) bool {
	if !t.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if s.opts.OnTransition != nil {
		var err error
		if to == Failed {
			err = t.err
		}
		s.opts.OnTransition(Transition{Subproject: t.node.Name(), From: from, To: to, Err: err})
	}
	return true
}

func (s *Scheduler) settleTask(t *task) {
	t.settle.Do(func() {
		close(t.done)
		s.wg.Done()
	})
}

// State implements StateSource.
func (s *Scheduler) State(name string) (State, bool) {
	t, ok := s.tasks[name]
	if !ok {
		return 0, false
	}
	return State(t.state.Load()), true
}

// Await blocks until the named subproject is terminal and returns its
// final state.
func (s *Scheduler) Await(ctx context.Context, name string) (State, error) {
	t, ok := s.tasks[name]
	if !ok {
		return 0, fmt.Errorf("unknown subproject %q", name)
	}
	select {
	case <-t.done:
		return State(t.state.Load()), nil
	case <-ctx.Done():
		return State(t.state.Load()), ctx.Err()
	}
}
