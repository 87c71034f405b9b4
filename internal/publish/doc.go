// Package publish uploads packaged archives and their digest files to
// S3-compatible object storage.
package publish
