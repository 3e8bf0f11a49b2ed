package merge

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mergefiles/mergefiles/pkg/compare"
	"github.com/mergefiles/mergefiles/pkg/copier"
	"github.com/mergefiles/mergefiles/pkg/errors"
	"github.com/mergefiles/mergefiles/pkg/filesystem"
	"github.com/mergefiles/mergefiles/pkg/logging"
	"github.com/mergefiles/mergefiles/pkg/resolve"
	"github.com/mergefiles/mergefiles/pkg/types"
)

// Options contains configuration for one merge call
type Options struct {
	// Policy decides conflicts for paths present in both a source and
	// the destination.
	Policy types.Policy

	// Concurrency is the copy worker pool size; values below 1 are
	// raised to 1.
	Concurrency int

	// PreserveMetadata carries permission bits and modification times
	// over to copied files.
	PreserveMetadata bool

	// FollowSymlinks resolves symlinks during enumeration.
	FollowSymlinks bool

	// CaseInsensitive folds case when matching paths across roots.
	CaseInsensitive bool

	// DryRun plans and reports without writing anything.
	DryRun bool

	// OnProgress, when set, is called from the collection loop after
	// every recorded outcome with the number done and the pass total.
	OnProgress func(done, total int)

	Logger zerolog.Logger

	// Filesystem operations interface for testing
	FS types.FS
}

// Merge merges the source roots, in order, into dest and returns the
// aggregate report.
//
// Per-file failures never abort the merge; they are recorded and the
// remaining actions still run. The error return is reserved for fatal
// setup conditions: no sources, a missing or unreadable root, or a
// destination that cannot be created. Cancellation is not an error:
// the report comes back marked Incomplete with never-started actions
// counted as Cancelled.
func Merge(ctx context.Context, sources []string, dest string, opts Options) (*types.Report, error) {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("merge")
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Policy == "" {
		opts.Policy = types.NeverOverwrite
	}

	if len(sources) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no source roots given")
	}
	for _, src := range sources {
		info, err := fsys.Stat(src)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrRootNotFound, "source root %s is not accessible", src)
		}
		if !info.IsDir() {
			return nil, errors.Newf(errors.ErrRootNotDir, "source root %s is not a directory", src)
		}
	}
	// A dry run must leave the filesystem untouched, including the
	// destination root itself.
	if !opts.DryRun {
		if err := fsys.MkdirAll(dest, 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrDestCreate, "cannot create destination %s", dest)
		}
	}

	worker := copier.New(copier.Options{
		PreserveMetadata: opts.PreserveMetadata,
		DryRun:           opts.DryRun,
		Logger:           logger,
		FS:               fsys,
	})

	report := &types.Report{}

	for _, src := range sources {
		if ctx.Err() != nil {
			report.Incomplete = true
			break
		}

		logger.Info().
			Str("source", src).
			Str("dest", dest).
			Str("policy", string(opts.Policy)).
			Msg("Starting pass")

		if err := runPass(ctx, fsys, worker, src, dest, opts, report); err != nil {
			// Destination root became inaccessible; remaining passes
			// cannot produce meaningful work.
			report.Incomplete = true
			return report, err
		}
	}

	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("cancelled", report.Cancelled).
		Bool("incomplete", report.Incomplete).
		Msg("Merge complete")

	return report, nil
}

// runPass merges one source root against the current destination state.
// The full action list is built before anything is dispatched, so the
// pass total is known up front.
func runPass(ctx context.Context, fsys types.FS, worker *copier.Worker, src, dest string, opts Options, report *types.Report) error {
	entries, err := compare.Enumerate(fsys, src, dest, compare.Options{
		FollowSymlinks:  opts.FollowSymlinks,
		CaseInsensitive: opts.CaseInsensitive,
	})
	if err != nil {
		return err
	}

	actions := planActions(entries, src, dest, opts.Policy, report)
	total := len(actions)

	// Outcomes funnel into this channel; the collection loop below is
	// the only writer of the shared report.
	outcomes := make(chan types.Outcome, total)

	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	dispatched := 0
	for _, action := range actions {
		// Cooperative cancellation: checked between actions, never
		// mid-copy. In-flight copies finish on their own.
		if ctx.Err() != nil {
			break
		}
		dispatched++
		// Rebind for the closure: the go directive is below 1.22, so
		// the loop variable is shared across iterations.
		action := action
		g.Go(func() error {
			outcomes <- worker.Execute(action)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	done := 0
	for outcome := range outcomes {
		report.Record(outcome)
		done++
		if opts.OnProgress != nil {
			opts.OnProgress(done, total)
		}
	}

	// Actions never handed to a worker are reported, not dropped.
	for _, action := range actions[dispatched:] {
		report.Record(types.Outcome{
			Action: action,
			Status: types.Cancelled,
			Err:    errors.Newf(errors.ErrCancelled, "merge cancelled before %s was dispatched", action.Path),
		})
	}
	if dispatched < total {
		report.Incomplete = true
	}

	return nil
}

// planActions turns comparator entries into the pass's action list.
// Entries carrying a deferred enumeration error are folded straight
// into the report as failures.
func planActions(entries []types.Entry, src, dest string, policy types.Policy, report *types.Report) []types.Action {
	actions := make([]types.Action, 0, len(entries))

	for _, entry := range entries {
		if entry.Err != nil {
			report.Record(types.Outcome{
				Action: types.Action{Path: entry.Path, Op: types.OpCopy, SourceRoot: src, DestRoot: dest},
				Status: types.Failed,
				Err:    entry.Err,
			})
			continue
		}

		switch entry.Class {
		case types.OnlyInSource:
			actions = append(actions, types.Action{
				Path:       entry.Path,
				Op:         types.OpCopy,
				SourceRoot: src,
				DestRoot:   dest,
			})
		case types.InBoth:
			op := types.OpSkip
			if resolve.Decide(entry.Path, policy, entry.SourceMeta, entry.DestMeta) == types.Overwrite {
				op = types.OpOverwrite
			}
			actions = append(actions, types.Action{
				Path:       entry.Path,
				Op:         op,
				SourceRoot: src,
				DestRoot:   dest,
			})
		case types.OnlyInDest:
			// Already merged content; nothing to do.
		}
	}

	return actions
}
