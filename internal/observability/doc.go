// Package observability turns an execution trace into concurrency
// statistics and gates them against a stored baseline.
//
// Concurrency is computed with a sweep over sample intervals. Intervals are
// half-open, so a process ending at t and another starting at t never
// overlap, and zero-length samples contribute wall time but no
// concurrency. The trace is cut into fixed-width bins from the first start;
// the last bin is clipped at the last end.
package observability
