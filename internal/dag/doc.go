// Package dag turns subproject declarations into a validated dependency
// graph.
//
// A Graph is mutable while declarations are registered. Finalize checks it
// for cycles over both edge kinds and freezes it into a Plan: an immutable,
// deterministically ordered view that the scheduler walks and the packager
// queries for runtime closures. Identical declaration order always yields
// the identical topological order.
//
// Edges point from a dependency to its dependent. A Build edge means the
// dependent needs the dependency's installed headers and libraries before it
// configures. A Runtime edge means the dependency's staged output is only
// needed when the dependent is packaged or tested.
package dag
