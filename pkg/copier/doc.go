// Package copier executes single file copy actions for the merge
// pipeline.
//
// A Worker is stateless and safe to invoke concurrently as long as no
// two in-flight actions share a destination path, which the coordinator
// guarantees by construction. A failed copy never leaves a partially
// written file at the final destination path.
package copier
