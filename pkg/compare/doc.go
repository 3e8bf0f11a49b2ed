// Package compare walks a source root and the destination root and
// classifies every relative path found in either tree as present only
// in the source, only in the destination, or in both.
//
// Directories are traversed but never emitted; only regular files (and,
// when enabled, symlink targets) become merge items. Unlistable
// subtrees surface as deferred entries carrying an access error rather
// than aborting the walk.
package compare
