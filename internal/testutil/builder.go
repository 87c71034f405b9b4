package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/superbuild/internal/scheduler"
	"github.com/specialistvlad/superbuild/internal/trace"
)

// ExecutionRecord holds the start and end time of one fake build.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// FakeBuilder is a scheduler.Builder that installs canned files instead of
// running processes. It records when each subproject was built.
type FakeBuilder struct {
	// Files lists, per subproject, the paths created in its stage dir.
	Files map[string][]string
	// Fail makes the named subprojects fail with exit code 1.
	Fail map[string]bool
	// Delay is how long each build takes.
	Delay time.Duration
	// Hold blocks the named subproject until its channel is closed.
	Hold map[string]chan struct{}
	// Recorder, when set, receives one build-phase sample per subproject.
	Recorder trace.Recorder

	mu         sync.Mutex
	records    map[string]*ExecutionRecord
	order      []string
	running    int
	maxRunning int
}

var _ scheduler.Builder = (*FakeBuilder)(nil)

// Build implements scheduler.Builder.
func (b *FakeBuilder) Build(ctx context.Context, job *scheduler.Job) error {
	name := job.Subproject.Name
	b.mu.Lock()
	if b.records == nil {
		b.records = make(map[string]*ExecutionRecord)
	}
	rec := &ExecutionRecord{Start: time.Now()}
	b.records[name] = rec
	b.order = append(b.order, name)
	b.running++
	b.maxRunning = max(b.maxRunning, b.running)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		rec.End = time.Now()
		b.running--
		sample := trace.Sample{
			Subproject: name,
			Component:  name,
			Phase:      trace.PhaseBuild,
			Command:    "fake-build " + name,
			Start:      rec.Start,
			End:        rec.End,
		}
		b.mu.Unlock()
		if b.Recorder != nil {
			_ = b.Recorder.Record(sample)
		}
	}()

	if hold, ok := b.Hold[name]; ok {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if b.Delay > 0 {
		select {
		case <-time.After(b.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if b.Fail[name] {
		return &scheduler.BuildFailure{
			Subproject: name,
			Phase:      "build",
			ExitCode:   1,
			Output:     "fake failure",
			Err:        errors.New("exit status 1"),
		}
	}
	if files := b.Files[name]; len(files) > 0 {
		return installFiles(job.StageDir, files)
	}
	return nil
}

// Record returns the timing of a subproject's build.
func (b *FakeBuilder) Record(name string) (ExecutionRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Started returns the subprojects in the order their builds began.
func (b *FakeBuilder) Started() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

// MaxConcurrent is the highest number of builds observed at once.
func (b *FakeBuilder) MaxConcurrent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxRunning
}
