package treeclone_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/treeclone/pkg/fixture"
	"github.com/jvs-project/treeclone/pkg/pathutil"
	"github.com/jvs-project/treeclone/pkg/treeclone"
)

func TestCloneAndVerify_Local(t *testing.T) {
	base := t.TempDir()
	src := treeclone.LocalSite(filepath.Join(base, "src"))
	dst := treeclone.LocalSite(filepath.Join(base, "dst"))
	require.NoError(t, fixture.Build(src))

	out, err := treeclone.CloneAndVerify(context.Background(), src, dst, treeclone.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, len(fixture.Files), out.Clone.Copied)
	assert.Empty(t, out.Report.Missing)

	for _, f := range fixture.Files {
		data, err := os.ReadFile(filepath.Join(base, "dst", filepath.FromSlash(f)))
		require.NoError(t, err)
		assert.Equal(t, fixture.Content(f), data)
	}
}

func TestCloneAndVerify_ReportsWhatFailuresLeftMissing(t *testing.T) {
	base := t.TempDir()
	src := treeclone.LocalSite(filepath.Join(base, "src"))
	require.NoError(t, fixture.Build(src))
	dstDir := filepath.Join(base, "dst")
	// a file where a directory must go
	require.NoError(t, os.MkdirAll(dstDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "dir01"), []byte("x"), 0o644))

	opts := treeclone.DefaultOptions()
	opts.ContinueOnError = true
	out, err := treeclone.CloneAndVerify(context.Background(), src, treeclone.LocalSite(dstDir), opts)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.NotEmpty(t, out.Clone.Failures)
	assert.Contains(t, out.Report.Missing, pathutil.Path(filepath.Join(dstDir, "dir01", "file02")))
}

func TestClone_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := treeclone.Clone(ctx, treeclone.MemorySite("/src"), treeclone.MemorySite("/dst"), treeclone.DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)

	_, err = treeclone.Verify(ctx, treeclone.MemorySite("/src"), treeclone.MemorySite("/dst"), treeclone.Scope{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_WithProgress(t *testing.T) {
	src := treeclone.MemorySite("/src")
	require.NoError(t, fixture.Build(src))

	var updates int
	c := treeclone.New(treeclone.ClientOptions{Progress: func(op string, current, total int, message string) { updates++ }})
	out, err := c.CloneAndVerify(context.Background(), src, treeclone.MemorySite("/dst"), treeclone.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Positive(t, updates)
}
