package copier_test

import (
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergefiles/mergefiles/pkg/copier"
	mergeerrors "github.com/mergefiles/mergefiles/pkg/errors"
	"github.com/mergefiles/mergefiles/pkg/testutil"
	"github.com/mergefiles/mergefiles/pkg/types"
)

func copyAction(path types.RelPath) types.Action {
	return types.Action{Path: path, Op: types.OpCopy, SourceRoot: "/src", DestRoot: "/dst"}
}

func TestExecuteCopiesNewFile(t *testing.T) {
	fsys := testutil.NewTestFS()
	testutil.SeedTree(t, fsys, "/src", map[string]string{"a/b.txt": "content"})
	require.NoError(t, fsys.MkdirAll("/dst", 0755))

	w := copier.New(copier.Options{FS: fsys})
	outcome := w.Execute(copyAction("a/b.txt"))

	assert.Equal(t, types.Succeeded, outcome.Status)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, outcome.DirsCreated)

	data, err := fsys.ReadFile("/dst/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestExecuteOverwriteReplacesContent(t *testing.T) {
	fsys := testutil.NewTestFS()
	testutil.SeedTree(t, fsys, "/src", map[string]string{"f.txt": "new"})
	testutil.SeedTree(t, fsys, "/dst", map[string]string{"f.txt": "old"})

	w := copier.New(copier.Options{FS: fsys})
	outcome := w.Execute(types.Action{Path: "f.txt", Op: types.OpOverwrite, SourceRoot: "/src", DestRoot: "/dst"})

	assert.Equal(t, types.Succeeded, outcome.Status)
	data, err := fsys.ReadFile("/dst/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestExecuteSkipDoesNoIO(t *testing.T) {
	fsys := testutil.NewTestFS()
	testutil.SeedTree(t, fsys, "/dst", map[string]string{"f.txt": "keep"})

	// Source file deliberately absent: a Skip must not read it.
	w := copier.New(copier.Options{FS: fsys})
	outcome := w.Execute(types.Action{Path: "f.txt", Op: types.OpSkip, SourceRoot: "/src", DestRoot: "/dst"})

	assert.Equal(t, types.Skipped, outcome.Status)
	data, err := fsys.ReadFile("/dst/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestExecuteDryRunWritesNothing(t *testing.T) {
	fsys := testutil.NewTestFS()
	testutil.SeedTree(t, fsys, "/src", map[string]string{"f.txt": "x"})
	require.NoError(t, fsys.MkdirAll("/dst", 0755))

	w := copier.New(copier.Options{FS: fsys, DryRun: true})
	outcome := w.Execute(copyAction("f.txt"))

	assert.Equal(t, types.Skipped, outcome.Status)
	_, err := fsys.Stat("/dst/f.txt")
	assert.Error(t, err)
}

func TestExecutePreservesMetadata(t *testing.T) {
	fsys := testutil.NewTestFS()
	mtime := time.Date(2023, 7, 4, 8, 0, 0, 0, time.UTC)
	testutil.SeedTreeWithTimes(t, fsys, "/src", map[string]string{"f.txt": "x"}, mtime)
	require.NoError(t, fsys.MkdirAll("/dst", 0755))

	w := copier.New(copier.Options{FS: fsys, PreserveMetadata: true})
	outcome := w.Execute(copyAction("f.txt"))
	require.Equal(t, types.Succeeded, outcome.Status)

	info, err := fsys.Stat("/dst/f.txt")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime), "want %v, got %v", mtime, info.ModTime())
}

func TestExecuteMissingSourceFails(t *testing.T) {
	fsys := testutil.NewTestFS()
	require.NoError(t, fsys.MkdirAll("/src", 0755))
	require.NoError(t, fsys.MkdirAll("/dst", 0755))

	w := copier.New(copier.Options{FS: fsys})
	outcome := w.Execute(copyAction("gone.txt"))

	assert.Equal(t, types.Failed, outcome.Status)
	assert.True(t, mergeerrors.IsCode(outcome.Err, mergeerrors.ErrSourceUnreadable))
}

// failingWriter errors after a partial write.
type failingWriter struct {
	io.WriteCloser
	err error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > 1 {
		_, _ = f.WriteCloser.Write(p[:1])
	}
	return 0, f.err
}

// faultFS injects write failures for one destination path.
type faultFS struct {
	types.FS
	failPath string
	err      error
}

func (f *faultFS) Create(name string) (io.WriteCloser, error) {
	w, err := f.FS.Create(name)
	if err != nil {
		return nil, err
	}
	if name == f.failPath {
		return &failingWriter{WriteCloser: w, err: f.err}, nil
	}
	return w, nil
}

func TestExecuteInterruptedCopyCleansUpPartialFile(t *testing.T) {
	base := testutil.NewTestFS()
	testutil.SeedTree(t, base, "/src", map[string]string{"f.txt": "some bytes"})
	require.NoError(t, base.MkdirAll("/dst", 0755))

	fsys := &faultFS{FS: base, failPath: "/dst/f.txt", err: errors.New("boom")}

	w := copier.New(copier.Options{FS: fsys})
	outcome := w.Execute(copyAction("f.txt"))

	assert.Equal(t, types.Failed, outcome.Status)
	assert.True(t, mergeerrors.IsCode(outcome.Err, mergeerrors.ErrInterruptedCopy))

	// The partially written file must not remain at the destination.
	_, err := base.Stat("/dst/f.txt")
	assert.Error(t, err)
}

func TestExecuteOutOfSpaceIsClassified(t *testing.T) {
	base := testutil.NewTestFS()
	testutil.SeedTree(t, base, "/src", map[string]string{"f.txt": "some bytes"})
	require.NoError(t, base.MkdirAll("/dst", 0755))

	fsys := &faultFS{FS: base, failPath: "/dst/f.txt", err: syscall.ENOSPC}

	w := copier.New(copier.Options{FS: fsys})
	outcome := w.Execute(copyAction("f.txt"))

	assert.Equal(t, types.Failed, outcome.Status)
	assert.True(t, mergeerrors.IsCode(outcome.Err, mergeerrors.ErrOutOfSpace))
}

func TestExecuteIsIdempotent(t *testing.T) {
	fsys := testutil.NewTestFS()
	testutil.SeedTree(t, fsys, "/src", map[string]string{"f.txt": "stable"})
	require.NoError(t, fsys.MkdirAll("/dst", 0755))

	w := copier.New(copier.Options{FS: fsys})
	action := copyAction("f.txt")

	first := w.Execute(action)
	second := w.Execute(action)

	assert.Equal(t, types.Succeeded, first.Status)
	assert.Equal(t, types.Succeeded, second.Status)

	data, err := fsys.ReadFile("/dst/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "stable", string(data))
}
