/*
Package builder is the scheduler's collaborator that turns a scheduler.Job
into OS processes.

For each subproject it runs up to three phases in order:

 1. configure: the declared `configure` argv, or a CMake configure of the
    source dir into the binary dir with the install prefix pointing at the
    stage dir.

 2. build: the declared `build` argv, or `cmake --build`.

 3. install: the declared `install` argv, or `cmake --install`.

Declaring any phase disables the CMake defaults for all three, and an
undeclared phase is then skipped.

Every phase runs with an environment derived from the resolved interface of
the subproject: PATH, PKG_CONFIG_PATH, CMAKE_PREFIX_PATH and the link and
rpath directory lists of its dependencies, plus `<Package>_DIR` for every
provided package. Each finished process is recorded as a trace sample,
including failed ones; a non-zero exit becomes a *scheduler.BuildFailure
carrying the tail of the phase output.
*/
package builder
