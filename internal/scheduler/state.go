package scheduler

import "fmt"

// State is the lifecycle state of one subproject.
type State int32

const (
	Declared State = iota
	Activated
	Building
	Complete
	Failed
	Skipped
)

var stateNames = [...]string{
	Declared:  "declared",
	Activated: "activated",
	Building:  "building",
	Complete:  "complete",
	Failed:    "failed",
	Skipped:   "skipped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Complete || s == Failed || s == Skipped
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown subproject state %q", text)
}

// StateSource reports subproject states. It is implemented by a live
// Scheduler and by a persisted StateFile.
type StateSource interface {
	State(name string) (State, bool)
}
