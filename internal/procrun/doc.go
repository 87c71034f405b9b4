// Package procrun runs one build command as an OS process in its own
// process group and measures it. The result is a trace.Sample plus the tail
// of the combined output, which callers surface verbatim on failure.
package procrun
