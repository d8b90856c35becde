// Package files provides FileStore implementations for uploaded documents:
// a local directory and an S3-compatible bucket.
package files
