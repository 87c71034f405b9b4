// Package app contains the core application logic. It holds the loaded
// declarations and the dependency plan, and exposes one method per command
// (build, package, report, exec, import-ninja, graph, publish), decoupled
// from the CLI that parses flags for them.
package app
