// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for file discovery, parsing, expression evaluation
// against the superbuild variables (source_root, build_root, name, env) and
// translation of the decoded blocks into the format-agnostic config model.
package hcl
