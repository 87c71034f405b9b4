// Package archive writes deterministic compressed tarballs of a staged
// artifact directory and their digest files.
package archive
