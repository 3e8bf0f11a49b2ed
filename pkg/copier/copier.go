package copier

import (
	stderrors "errors"
	"io"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mergefiles/mergefiles/pkg/errors"
	"github.com/mergefiles/mergefiles/pkg/filesystem"
	"github.com/mergefiles/mergefiles/pkg/logging"
	"github.com/mergefiles/mergefiles/pkg/types"
)

// Options contains configuration for a copy worker
type Options struct {
	// PreserveMetadata carries permission bits and modification time
	// over to the destination file.
	PreserveMetadata bool

	// DryRun reports what would happen without touching the filesystem.
	DryRun bool

	Logger zerolog.Logger

	// Filesystem operations interface for testing
	FS types.FS
}

// Worker executes merge actions one file at a time.
type Worker struct {
	fs       types.FS
	preserve bool
	dryRun   bool
	logger   zerolog.Logger
}

// New creates a new copy worker
func New(opts Options) *Worker {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("copier")
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}

	return &Worker{
		fs:       fsys,
		preserve: opts.PreserveMetadata,
		dryRun:   opts.DryRun,
		logger:   logger,
	}
}

// Execute performs a single action and returns its outcome. Skip
// actions do no I/O. Copy and Overwrite stream the source file to the
// destination, creating intermediate directories as needed.
func (w *Worker) Execute(action types.Action) types.Outcome {
	start := time.Now()

	w.logger.Debug().
		Str("path", action.Path.String()).
		Str("op", action.Op.String()).
		Bool("dry_run", w.dryRun).
		Msg("Executing action")

	if action.Op == types.OpSkip {
		return types.Outcome{
			Action:   action,
			Status:   types.Skipped,
			Duration: time.Since(start),
		}
	}

	if w.dryRun {
		return types.Outcome{
			Action:   action,
			Status:   types.Skipped,
			Duration: time.Since(start),
		}
	}

	dirsCreated, err := w.copyFile(action)
	if err != nil {
		w.logger.Error().
			Err(err).
			Str("path", action.Path.String()).
			Msg("Action execution failed")

		return types.Outcome{
			Action:      action,
			Status:      types.Failed,
			Err:         err,
			DirsCreated: dirsCreated,
			Duration:    time.Since(start),
		}
	}

	w.logger.Debug().
		Str("path", action.Path.String()).
		Dur("duration", time.Since(start)).
		Msg("Action executed successfully")

	return types.Outcome{
		Action:      action,
		Status:      types.Succeeded,
		DirsCreated: dirsCreated,
		Duration:    time.Since(start),
	}
}

// copyFile streams bytes from the action's source path to its
// destination path. It returns the number of directories created for
// the destination's parent chain.
func (w *Worker) copyFile(action types.Action) (int, error) {
	srcPath := action.SourcePath()
	dstPath := action.DestPath()

	srcInfo, err := w.fs.Stat(srcPath)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrSourceUnreadable, "cannot stat source %s", srcPath)
	}

	dirsCreated, err := w.ensureParent(dstPath)
	if err != nil {
		return dirsCreated, err
	}

	src, err := w.fs.Open(srcPath)
	if err != nil {
		return dirsCreated, errors.Wrapf(err, errors.ErrSourceUnreadable, "cannot open source %s", srcPath)
	}
	defer func() { _ = src.Close() }()

	dst, err := w.fs.Create(dstPath)
	if err != nil {
		return dirsCreated, errors.Wrapf(err, errors.ErrDestUnwritable, "cannot create destination %s", dstPath)
	}

	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		// Never leave a corrupt-but-present file at the destination.
		_ = w.fs.Remove(dstPath)
		return dirsCreated, classifyWriteError(copyErr, dstPath)
	}

	if w.preserve {
		if err := w.fs.Chmod(dstPath, srcInfo.Mode().Perm()); err != nil {
			return dirsCreated, errors.Wrapf(err, errors.ErrDestUnwritable, "cannot set permissions on %s", dstPath)
		}
		if err := w.fs.Chtimes(dstPath, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
			return dirsCreated, errors.Wrapf(err, errors.ErrDestUnwritable, "cannot set times on %s", dstPath)
		}
	}

	return dirsCreated, nil
}

// ensureParent creates the destination's parent directory chain.
// Sibling workers may race to create a shared ancestor; MkdirAll
// tolerates that, so an "already exists" outcome is never an error.
func (w *Worker) ensureParent(dstPath string) (int, error) {
	parent := filepath.Dir(dstPath)

	missing := countMissing(w.fs, parent)
	if missing == 0 {
		return 0, nil
	}

	if err := w.fs.MkdirAll(parent, 0755); err != nil {
		return 0, errors.Wrapf(err, errors.ErrDestUnwritable, "cannot create directory %s", parent)
	}
	return missing, nil
}

// countMissing walks up from dir counting path components that do not
// exist yet. The count feeds the report's directories-created tally and
// may under-count under concurrent creation, which is acceptable.
func countMissing(fsys types.FS, dir string) int {
	missing := 0
	for {
		if _, err := fsys.Stat(dir); err == nil {
			return missing
		}
		missing++
		parent := filepath.Dir(dir)
		if parent == dir {
			return missing
		}
		dir = parent
	}
}

// classifyWriteError maps a copy-time write failure onto the error
// taxonomy. Out-of-space is detected via ENOSPC; everything else that
// interrupts an in-progress copy is an interrupted copy.
func classifyWriteError(err error, dstPath string) error {
	if isNoSpace(err) {
		return errors.Wrapf(err, errors.ErrOutOfSpace, "no space writing %s", dstPath)
	}
	return errors.Wrapf(err, errors.ErrInterruptedCopy, "copy to %s interrupted", dstPath)
}

func isNoSpace(err error) bool {
	return stderrors.Is(err, syscall.ENOSPC)
}
