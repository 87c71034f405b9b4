package packager

import (
	"fmt"

	"github.com/specialistvlad/superbuild/internal/scheduler"
)

// DependencyNotReadyError reports an artifact input that has not completed.
type DependencyNotReadyError struct {
	Artifact   string
	Target     string
	Subproject string
	State      scheduler.State
}

func (e *DependencyNotReadyError) Error() string {
	return fmt.Sprintf("artifact %q (target %s): subproject %q is not ready (state: %s)",
		e.Artifact, e.Target, e.Subproject, e.State)
}

// PackagingConflictError reports two subprojects claiming the same path in
// one component.
type PackagingConflictError struct {
	Artifact    string
	Component   string
	Path        string
	Subprojects [2]string
}

func (e *PackagingConflictError) Error() string {
	return fmt.Sprintf("artifact %q component %q: path %q is installed by both %q and %q",
		e.Artifact, e.Component, e.Path, e.Subprojects[0], e.Subprojects[1])
}
