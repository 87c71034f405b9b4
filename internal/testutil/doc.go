// Package testutil provides shared helpers for tests: a temporary
// declaration workspace, a fake subproject builder, and assertions over
// build timings and install trees.
package testutil
