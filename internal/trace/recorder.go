package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Recorder is a sink for samples. Implementations are safe for concurrent
// use.
type Recorder interface {
	Record(s Sample) error
}

// FileRecorder appends samples to a JSON lines file. Each sample is written
// with a single append so concurrent writers, including separate
// processes, do not interleave lines.
type FileRecorder struct {
	mu   sync.Mutex
	file *os.File
}

// OpenFile opens (creating if needed) the trace file for appending. Used by
// writers that add to an existing run, such as exec and import-ninja.
func OpenFile(path string) (*FileRecorder, error) {
	return openFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

// CreateFile starts a fresh trace at path, discarding samples of earlier
// runs. Writes still append so exec invocations launched by this run land
// after the truncation.
func CreateFile(path string) (*FileRecorder, error) {
	return openFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND)
}

func openFile(path string, flag int) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file %s: %w", path, err)
	}
	return &FileRecorder{file: f}, nil
}

// Record implements Recorder.
func (r *FileRecorder) Record(s Sample) error {
	line, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.Write(line); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	return r.file.Close()
}

// MemoryRecorder keeps samples in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	samples []Sample
}

// Record implements Recorder.
func (r *MemoryRecorder) Record(s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

// Samples returns a copy of the recorded samples in arrival order.
func (r *MemoryRecorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.samples)
}

// MultiRecorder fans a sample out to several recorders. The first error is
// returned after every recorder has been tried.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(s Sample) error {
	var first error
	for _, r := range m {
		if err := r.Record(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
