package types

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// RelPath is a file location relative to a directory root, using
// forward-slash segments regardless of the host separator.
type RelPath string

// String returns the path as a plain string.
func (p RelPath) String() string {
	return string(p)
}

// Fold returns the identity key for the path. With caseInsensitive set,
// paths differing only in case compare equal.
func (p RelPath) Fold(caseInsensitive bool) string {
	if caseInsensitive {
		return strings.ToLower(string(p))
	}
	return string(p)
}

// Classification records where a relative path was found when comparing
// a source root against the destination.
type Classification int

const (
	// OnlyInSource means the path exists under the source root only.
	OnlyInSource Classification = iota
	// OnlyInDest means the path exists under the destination only.
	OnlyInDest
	// InBoth means the path exists under both roots and is a conflict.
	InBoth
)

func (c Classification) String() string {
	switch c {
	case OnlyInSource:
		return "only-in-source"
	case OnlyInDest:
		return "only-in-dest"
	case InBoth:
		return "in-both"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// Policy determines which side wins when a path exists under both a
// source root and the destination.
type Policy string

const (
	// AlwaysOverwrite replaces the destination file with the source file.
	AlwaysOverwrite Policy = "always-overwrite"
	// NeverOverwrite retains the destination file.
	NeverOverwrite Policy = "never-overwrite"
	// NewerWins overwrites only when the source is strictly newer; ties
	// and missing metadata retain the destination.
	NewerWins Policy = "newer-wins"
)

// ParsePolicy converts a user-supplied policy name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case AlwaysOverwrite:
		return AlwaysOverwrite, nil
	case NeverOverwrite:
		return NeverOverwrite, nil
	case NewerWins:
		return NewerWins, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want always-overwrite, never-overwrite or newer-wins)", s)
	}
}

// Decision is the resolver's verdict for one conflicting path.
type Decision int

const (
	// Skip retains the destination file.
	Skip Decision = iota
	// Overwrite replaces the destination file with the source file.
	Overwrite
)

func (d Decision) String() string {
	if d == Overwrite {
		return "overwrite"
	}
	return "skip"
}

// Operation is the kind of work one Action performs.
type Operation int

const (
	// OpCopy copies a file that does not yet exist at the destination.
	OpCopy Operation = iota
	// OpOverwrite replaces an existing destination file.
	OpOverwrite
	// OpSkip records a retained destination file; no I/O is performed.
	OpSkip
)

func (o Operation) String() string {
	switch o {
	case OpCopy:
		return "copy"
	case OpOverwrite:
		return "overwrite"
	case OpSkip:
		return "skip"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// FileMeta carries the per-file metadata the resolver may consult.
// A nil *FileMeta means the metadata could not be obtained.
type FileMeta struct {
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// MetaFromInfo builds a FileMeta from a stat result.
func MetaFromInfo(info fs.FileInfo) *FileMeta {
	if info == nil {
		return nil
	}
	return &FileMeta{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}
}

// Entry is one comparator result: a relative path, where it was found,
// and the metadata of each side. Err carries a deferred enumeration
// failure for the subtree the entry stands for.
type Entry struct {
	Path       RelPath
	Class      Classification
	SourceMeta *FileMeta
	DestMeta   *FileMeta
	Err        error
}

// Action is one scheduled unit of merge work. Each action touches
// exactly one destination path, which is what makes concurrent
// execution safe without per-file locking.
type Action struct {
	Path       RelPath
	Op         Operation
	SourceRoot string
	DestRoot   string
}

// SourcePath returns the absolute path of the file to read.
func (a Action) SourcePath() string {
	return joinRoot(a.SourceRoot, a.Path)
}

// DestPath returns the absolute path of the file to write.
func (a Action) DestPath() string {
	return joinRoot(a.DestRoot, a.Path)
}

// Status is the result kind of one executed action.
type Status int

const (
	// Succeeded means the action's file was copied or overwritten.
	Succeeded Status = iota
	// Skipped means the destination was retained (or a dry run).
	Skipped
	// Failed means the action hit an I/O error; Outcome.Err says why.
	Failed
	// Cancelled means the action was never started because the merge
	// was cancelled.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of executing one Action.
type Outcome struct {
	Action      Action
	Status      Status
	Err         error
	DirsCreated int
	Duration    time.Duration
}

// Failure records one failed path for the final report.
type Failure struct {
	Path RelPath
	Err  error
}

// Report aggregates the outcomes of one merge call. It is created empty
// by the coordinator, populated as workers complete, and immutable once
// the merge returns.
type Report struct {
	Succeeded   int
	Skipped     int
	Failed      int
	Cancelled   int
	DirsCreated int
	Failures    []Failure
	// Incomplete is set when the merge was cancelled or aborted before
	// every action was dispatched.
	Incomplete bool
}

// Total returns the number of actions the report accounts for.
func (r *Report) Total() int {
	return r.Succeeded + r.Skipped + r.Failed + r.Cancelled
}

// Record folds one outcome into the report. Only the coordinator's
// collection loop calls this; workers never touch the report.
func (r *Report) Record(o Outcome) {
	switch o.Status {
	case Succeeded:
		r.Succeeded++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
		r.Failures = append(r.Failures, Failure{Path: o.Action.Path, Err: o.Err})
	case Cancelled:
		r.Cancelled++
	}
	r.DirsCreated += o.DirsCreated
}

func joinRoot(root string, p RelPath) string {
	return filepath.Join(root, filepath.FromSlash(string(p)))
}
