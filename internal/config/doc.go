// Package config defines the format-agnostic declaration model for the
// superbuild: subprojects, artifact descriptors and their component rules,
// plus the build-tree layout that maps them onto the filesystem.
//
// The `config.Model` is the single source of truth for the `dag`,
// `scheduler` and `packager` packages. Concrete loaders, such as the HCL
// one, live in separate packages and only have to satisfy `config.Loader`.
package config
