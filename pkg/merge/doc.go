// Package merge orchestrates the directory merge pipeline.
//
// The coordinator runs one pass per source root, in order: it
// enumerates the source against the current destination state, decides
// every conflict under the configured policy, builds the full action
// list up front, and dispatches the actions to a bounded pool of copy
// workers. Outcomes flow back over a channel into a single-writer
// report; workers never touch shared state. A pass drains completely
// before the next source root begins, which is what gives root order
// its precedence semantics.
package merge
