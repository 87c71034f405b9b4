// Package trace defines the execution trace shared by the scheduler and the
// observability reporter: one resource Sample per finished process, stored
// as JSON lines.
package trace
