package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jvs-project/treeclone/pkg/fsutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite_CreatesFile(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	data := []byte("key: value\n")

	err := fsutil.AtomicWrite(fs, path, data, 0644)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestAtomicWrite_OverwritesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/test.yaml", []byte("old"), 0644))

	require.NoError(t, fsutil.AtomicWrite(fs, "/d/test.yaml", []byte("new"), 0644))

	content, err := afero.ReadFile(fs, "/d/test.yaml")
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestAtomicWrite_NoTmpLeftOnSuccess(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	require.NoError(t, fsutil.AtomicWrite(fs, filepath.Join(dir, "x"), []byte("data"), 0644))

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1, "only the target file should exist")
}

func TestStage_DiscardLeavesTargetUntouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/keep.txt", []byte("original"), 0644))

	s, err := fsutil.Stage(fs, "/d/keep.txt", 0644)
	require.NoError(t, err)
	_, err = s.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, s.Discard())

	content, err := afero.ReadFile(fs, "/d/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))

	infos, err := afero.ReadDir(fs, "/d")
	require.NoError(t, err)
	assert.Len(t, infos, 1, "staged temp file must be removed")
}

func TestStage_DiscardAfterCommitIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/d", 0755))
	s, err := fsutil.Stage(fs, "/d/a", 0644)
	require.NoError(t, err)
	_, err = s.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, s.Commit())
	require.NoError(t, s.Discard())
	require.Error(t, s.Commit(), "second commit must fail")

	content, err := afero.ReadFile(fs, "/d/a")
	require.NoError(t, err)
	assert.Equal(t, "a", string(content))
}

func TestFsyncDir(t *testing.T) {
	err := fsutil.FsyncDir(afero.NewOsFs(), t.TempDir())
	assert.NoError(t, err)
}
