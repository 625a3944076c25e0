package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOS_RootedAtDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "a.jpg"), []byte("x"), 0o644))

	fsys, err := OS(dir)
	require.NoError(t, err)

	entries, err := fsys.ReadDir("images")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.jpg", entries[0].Name())
}

func TestOS_Missing(t *testing.T) {
	_, err := OS(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestOS_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := OS(file)
	require.ErrorIs(t, err, ErrNotDirectory)
}

func TestWithin(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "data/train/a.txt", []byte("hello"), 0o644))

	open := Within(mem)

	fsys, err := open("data")
	require.NoError(t, err)
	b, err := util.ReadFile(fsys, "train/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = open("missing")
	require.Error(t, err)
	assert.True(t, IsNotExist(err))

	_, err = open("data/train/a.txt")
	require.ErrorIs(t, err, ErrNotDirectory)
}
