package cli

import (
	"context"
	"errors"

	"github.com/specialistvlad/superbuild/internal/app"
	"github.com/specialistvlad/superbuild/internal/dag"
	"github.com/specialistvlad/superbuild/internal/observability"
	"github.com/specialistvlad/superbuild/internal/packager"
	"github.com/specialistvlad/superbuild/internal/scheduler"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneric    = 1
	ExitUsage      = 2
	ExitBuild      = 3
	ExitNotReady   = 4
	ExitConflict   = 5
	ExitRegression = 6
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCode maps an application error onto the process exit code.
func exitCode(err error) int {
	var (
		exitErr    *ExitError
		declErr    *dag.DeclarationError
		cycleErr   *dag.CycleError
		buildErr   *scheduler.BuildFailure
		runErr     *scheduler.RunError
		notReady   *packager.DependencyNotReadyError
		conflict   *packager.PackagingConflictError
		regression *observability.RegressionDetected
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, app.ErrUsage), errors.Is(err, app.ErrDeclarations),
		errors.As(err, &declErr), errors.As(err, &cycleErr):
		return ExitUsage
	case errors.As(err, &conflict):
		return ExitConflict
	case errors.As(err, &notReady):
		return ExitNotReady
	case errors.As(err, &buildErr), errors.As(err, &runErr):
		return ExitBuild
	case errors.As(err, &regression):
		return ExitRegression
	case errors.Is(err, context.Canceled):
		return ExitBuild
	}
	return ExitGeneric
}

// wrap turns err into an *ExitError carrying its exit code.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: exitCode(err), Message: err.Error(), Err: err}
}
