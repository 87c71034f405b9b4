package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateFile is the persisted form of the subproject states of one target.
// It lets `package` check readiness in a separate process.
type StateFile struct {
	Target      string                 `json:"target"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Subprojects map[string]StateRecord `json:"subprojects"`
}

// StateRecord is one subproject's entry in a StateFile.
type StateRecord struct {
	State State     `json:"state"`
	Error string    `json:"error,omitempty"`
	Start time.Time `json:"start,omitzero"`
	End   time.Time `json:"end,omitzero"`
}

// State implements StateSource.
func (f *StateFile) State(name string) (State, bool) {
	rec, ok := f.Subprojects[name]
	if !ok {
		return 0, false
	}
	return rec.State, true
}

// LoadState reads a state file. A missing file yields an empty StateFile.
func LoadState(path string) (*StateFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &StateFile{Subprojects: map[string]StateRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read build state: %w", err)
	}
	var f StateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode build state %s: %w", path, err)
	}
	if f.Subprojects == nil {
		f.Subprojects = map[string]StateRecord{}
	}
	return &f, nil
}

// SaveState merges the run's terminal states into the state file at path.
// Entries of subprojects outside the run are kept, so partial builds
// accumulate.
func SaveState(path, target string, res *Result) error {
	f, err := LoadState(path)
	if err != nil {
		return err
	}
	f.Target = target
	f.UpdatedAt = time.Now().UTC()
	for _, n := range res.Nodes {
		rec := StateRecord{State: n.State, Start: n.Start, End: n.End}
		if n.Err != nil {
			rec.Error = n.Err.Error()
		} else if n.SkipReason != "" {
			rec.Error = "skipped: " + n.SkipReason
		}
		f.Subprojects[n.Name] = rec
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode build state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write build state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write build state: %w", err)
	}
	return nil
}
