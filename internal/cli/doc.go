// Package cli wires the superbuild commands onto urfave/cli, loads the
// optional .env file, and maps the typed errors of the build, packaging and
// report stages onto process exit codes.
package cli
