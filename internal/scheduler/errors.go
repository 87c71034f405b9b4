package scheduler

import (
	"fmt"
	"strings"
)

// BuildFailure reports a subproject phase that exited unsuccessfully.
type BuildFailure struct {
	Subproject string
	Phase      string
	ExitCode   int
	// Output is the captured tail of the phase's combined output.
	Output string
	Err    error
}

func (e *BuildFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "subproject %q failed in %s phase", e.Subproject, e.Phase)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	} else {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
	}
	return b.String()
}

func (e *BuildFailure) Unwrap() error { return e.Err }

// RunError is returned by Run when at least one subproject failed.
type RunError struct {
	Failed  []string
	Skipped []string
	Errs    []error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("build failed for %s", strings.Join(e.Failed, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(" (skipped: %s)", strings.Join(e.Skipped, ", "))
	}
	for _, err := range e.Errs {
		msg += "\n" + err.Error()
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *RunError) Unwrap() []error { return e.Errs }
