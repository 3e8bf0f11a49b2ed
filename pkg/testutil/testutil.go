// Package testutil provides filesystem fixtures for mergefiles tests.
package testutil

import (
	"path"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/mergefiles/mergefiles/pkg/filesystem"
	"github.com/mergefiles/mergefiles/pkg/types"
)

// NewTestFS creates a new in-memory filesystem for testing.
func NewTestFS() types.FS {
	return filesystem.NewAferoFS(afero.NewMemMapFs())
}

// SeedTree writes the given relative-path -> content map under root,
// creating parent directories as needed.
func SeedTree(t *testing.T, fsys types.FS, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := path.Join(root, rel)
		require.NoError(t, fsys.MkdirAll(path.Dir(full), 0755))
		require.NoError(t, fsys.WriteFile(full, []byte(content), 0644))
	}
}

// SeedTreeWithTimes is SeedTree with an explicit modification time per
// file, for exercising newer-wins decisions.
func SeedTreeWithTimes(t *testing.T, fsys types.FS, root string, files map[string]string, mtime time.Time) {
	t.Helper()
	SeedTree(t, fsys, root, files)
	for rel := range files {
		full := path.Join(root, rel)
		require.NoError(t, fsys.Chtimes(full, mtime, mtime))
	}
}

// ReadTree returns every file under root as a relative-path -> content
// map, for asserting on a merge's end state.
func ReadTree(t *testing.T, fsys types.FS, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	var walk func(dir, rel string)
	walk = func(dir, rel string) {
		entries, err := fsys.ReadDir(dir)
		require.NoError(t, err)
		for _, entry := range entries {
			childAbs := path.Join(dir, entry.Name())
			childRel := path.Join(rel, entry.Name())
			if entry.IsDir() {
				walk(childAbs, childRel)
				continue
			}
			data, err := fsys.ReadFile(childAbs)
			require.NoError(t, err)
			out[childRel] = string(data)
		}
	}
	walk(root, "")
	return out
}
