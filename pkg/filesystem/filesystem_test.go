package filesystem_test

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergefiles/mergefiles/pkg/filesystem"
)

func TestAferoFSRoundtrip(t *testing.T) {
	fsys := filesystem.NewAferoFS(afero.NewMemMapFs())

	require.NoError(t, fsys.MkdirAll("/a/b", 0755))
	require.NoError(t, fsys.WriteFile("/a/b/f.txt", []byte("hello"), 0644))

	data, err := fsys.ReadFile("/a/b/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := fsys.Stat("/a/b/f.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.False(t, info.IsDir())

	entries, err := fsys.ReadDir("/a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir())
}

func TestAferoFSStreaming(t *testing.T) {
	fsys := filesystem.NewAferoFS(afero.NewMemMapFs())
	require.NoError(t, fsys.MkdirAll("/d", 0755))

	w, err := fsys.Create("/d/out.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fsys.Open("/d/out.bin")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(data))
}

func TestAferoFSChtimes(t *testing.T) {
	fsys := filesystem.NewAferoFS(afero.NewMemMapFs())
	require.NoError(t, fsys.WriteFile("/f", []byte("x"), 0644))

	when := time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, fsys.Chtimes("/f", when, when))

	info, err := fsys.Stat("/f")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(when))
}

func TestAferoFSReadFileOnDirFails(t *testing.T) {
	fsys := filesystem.NewAferoFS(afero.NewMemMapFs())
	require.NoError(t, fsys.MkdirAll("/dir", 0755))

	_, err := fsys.ReadFile("/dir")
	assert.Error(t, err)
}
