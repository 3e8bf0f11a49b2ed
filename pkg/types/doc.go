// Package types defines the core value types shared across the merge
// pipeline: path classifications, conflict policies, scheduled actions,
// per-action outcomes and the aggregate report, plus the FS interface
// that abstracts filesystem access for production and test use.
package types
