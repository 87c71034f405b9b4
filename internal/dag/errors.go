package dag

import (
	"fmt"
	"strings"
)

// DeclarationError reports an invalid subproject declaration: a duplicate
// name, an unknown dependency or a mutation after Finalize.
type DeclarationError struct {
	Subproject string
	Reason     string
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("invalid declaration of subproject %q: %s", e.Subproject, e.Reason)
}

// CycleError reports a dependency cycle. Path starts and ends with the same
// subproject and follows edge direction (dependency -> dependent).
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Path, " -> ")
}
