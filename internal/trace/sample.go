package trace

import "time"

// Phase names used by the scheduler.
const (
	PhaseConfigure = "configure"
	PhaseBuild     = "build"
	PhaseInstall   = "install"
	// PhaseCompile tags samples written by the compiler-launcher mode and
	// imported from ninja logs.
	PhaseCompile = "compile"
)

// Sample is the resource usage of one finished process.
type Sample struct {
	PID        int           `json:"pid"`
	Subproject string        `json:"subproject,omitempty"`
	Component  string        `json:"component"`
	Phase      string        `json:"phase,omitempty"`
	Command    string        `json:"cmd"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	CPUTime    time.Duration `json:"cpu_time"`
	UserTime   time.Duration `json:"user_time"`
	SysTime    time.Duration `json:"sys_time"`
	// MaxRSS is in bytes.
	MaxRSS   int64 `json:"max_rss"`
	Threads  int   `json:"thread_count"`
	ExitCode int   `json:"exit_code"`
}

// Wall is the sample's wall-clock duration. Inverted intervals count as 0.
func (s Sample) Wall() time.Duration {
	if d := s.End.Sub(s.Start); d > 0 {
		return d
	}
	return 0
}
