package compare_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergefiles/mergefiles/pkg/compare"
	"github.com/mergefiles/mergefiles/pkg/filesystem"
	"github.com/mergefiles/mergefiles/pkg/types"
)

// Symlink behavior needs a real filesystem; the in-memory one cannot
// represent link cycles.

func TestEnumerateSymlinksIgnoredByDefault(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(src, "real.txt"), filepath.Join(src, "link.txt")))

	entries, err := compare.Enumerate(filesystem.NewOS(), src, dst, compare.Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.RelPath("real.txt"), entries[0].Path)
}

func TestEnumerateFollowSymlinksEmitsLinkedFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(src, "real.txt"), filepath.Join(src, "link.txt")))

	entries, err := compare.Enumerate(filesystem.NewOS(), src, dst, compare.Options{FollowSymlinks: true})
	require.NoError(t, err)

	paths := make([]types.RelPath, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	assert.ElementsMatch(t, []types.RelPath{"real.txt", "link.txt"}, paths)
}

func TestEnumerateFollowSymlinksDetectsCycle(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	sub := filepath.Join(src, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "file.txt"), []byte("x"), 0644))
	// sub/loop points back at the root: traversal must terminate.
	require.NoError(t, os.Symlink(src, filepath.Join(sub, "loop")))

	entries, err := compare.Enumerate(filesystem.NewOS(), src, dst, compare.Options{FollowSymlinks: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.RelPath("sub/file.txt"), entries[0].Path)
}

func TestEnumerateBrokenSymlinkIsSkipped(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.Symlink(filepath.Join(src, "gone"), filepath.Join(src, "dangling")))
	require.NoError(t, os.WriteFile(filepath.Join(src, "ok.txt"), []byte("x"), 0644))

	entries, err := compare.Enumerate(filesystem.NewOS(), src, dst, compare.Options{FollowSymlinks: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.RelPath("ok.txt"), entries[0].Path)
}
