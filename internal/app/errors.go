package app

import "errors"

var (
	// ErrUsage marks invalid flags or arguments.
	ErrUsage = errors.New("usage error")
	// ErrDeclarations marks declarations that failed to load.
	ErrDeclarations = errors.New("invalid declarations")
)
