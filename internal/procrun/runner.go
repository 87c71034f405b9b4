package procrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
	"github.com/specialistvlad/superbuild/internal/trace"
)

const (
	defaultTailLines      = 40
	defaultSampleInterval = 250 * time.Millisecond
	killGrace             = 5 * time.Second
)

// Spec describes a single process launch.
type Spec struct {
	Args []string
	Dir  string
	// Env is the complete environment of the child.
	Env []string
	// Output, if set, receives stdout, and stderr too unless Stderr is set.
	Output io.Writer
	// Stderr, if set, receives stderr separately from Output.
	Stderr io.Writer

	Subproject string
	Component  string
	Phase      string
}

// Result is the outcome of a launched process.
type Result struct {
	Sample trace.Sample
	// Tail holds the last lines of combined output.
	Tail string
}

// Runner launches processes. The zero value is ready to use.
type Runner struct {
	// TailLines bounds the captured output tail.
	TailLines int
	// SampleInterval is the thread/RSS polling period.
	SampleInterval time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Run starts the process and waits for it. A non-zero exit status is not an
// error: it is reported in Result.Sample.ExitCode. An error is returned
// when the process cannot be started or when ctx is cancelled, in which
// case the whole process group is killed. Result always carries a sample
// once the process has started.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if len(spec.Args) == 0 {
		return nil, errors.New("empty command")
	}
	logger := ctxlog.FromContext(ctx).With("subproject", spec.Subproject, "phase", spec.Phase)

	tail := newTailBuffer(r.tailLines())
	var out io.Writer = tail
	if spec.Output != nil {
		out = io.MultiWriter(tail, spec.Output)
	}
	errOut := out
	if spec.Stderr != nil {
		errOut = io.MultiWriter(tail, spec.Stderr)
	}

	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = out
	cmd.Stderr = errOut
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = killGrace

	start := r.now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", spec.Args[0], err)
	}
	pid := cmd.Process.Pid
	logger.Debug("Process started.", "pid", pid, "cmd", spec.Args)

	mon := r.startMonitor(ctx, pid)
	waitErr := cmd.Wait()
	end := r.now()
	peak := mon.stop()

	sample := trace.Sample{
		PID:        pid,
		Subproject: spec.Subproject,
		Component:  spec.Component,
		Phase:      spec.Phase,
		Command:    strings.Join(spec.Args, " "),
		Start:      start,
		End:        end,
		Threads:    peak.threads,
		ExitCode:   -1,
	}
	if st := cmd.ProcessState; st != nil {
		sample.UserTime = st.UserTime()
		sample.SysTime = st.SystemTime()
		sample.CPUTime = sample.UserTime + sample.SysTime
		sample.ExitCode = st.ExitCode()
		sample.MaxRSS = maxRSS(st)
	}
	if sample.MaxRSS < peak.rss {
		sample.MaxRSS = peak.rss
	}
	if sample.Threads == 0 {
		sample.Threads = 1
	}

	res := &Result{Sample: sample, Tail: tail.String()}
	if ctx.Err() != nil {
		logger.Warn("Process killed on cancellation.", "pid", pid)
		return res, fmt.Errorf("%s cancelled: %w", spec.Phase, ctx.Err())
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return res, fmt.Errorf("failed waiting for %q: %w", spec.Args[0], waitErr)
	}
	logger.Debug("Process exited.", "pid", pid, "exit_code", sample.ExitCode, "wall", sample.Wall())
	return res, nil
}

func (r *Runner) tailLines() int {
	if r.TailLines > 0 {
		return r.TailLines
	}
	return defaultTailLines
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

type usagePeak struct {
	threads int
	rss     int64
}

type monitor struct {
	done chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
	peak usagePeak
}

// startMonitor polls the process for its thread count and resident set
// size until stop is called. Polling errors are ignored: the process may
// exit between ticks.
func (r *Runner) startMonitor(ctx context.Context, pid int) *monitor {
	m := &monitor{done: make(chan struct{})}
	interval := r.SampleInterval
	if interval <= 0 {
		interval = defaultSampleInterval
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		proc, err := process.NewProcessWithContext(ctx, int32(pid))
		if err != nil {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			m.observe(ctx, proc)
			select {
			case <-m.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return m
}

func (m *monitor) observe(ctx context.Context, proc *process.Process) {
	threads, err := proc.NumThreadsWithContext(ctx)
	if err != nil {
		return
	}
	var rss int64
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		rss = int64(mem.RSS)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if int(threads) > m.peak.threads {
		m.peak.threads = int(threads)
	}
	if rss > m.peak.rss {
		m.peak.rss = rss
	}
}

func (m *monitor) stop() usagePeak {
	close(m.done)
	m.wg.Wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
