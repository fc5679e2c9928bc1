package verify_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/treeclone/internal/engine"
	"github.com/jvs-project/treeclone/internal/verify"
	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fixture"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

func memSite(root pathutil.Path) fsys.Site {
	return fsys.NewSite(fsys.NewAfero(afero.NewMemMapFs(), pathutil.Slash), root)
}

func clonedPair(t *testing.T) (fsys.Site, fsys.Site) {
	t.Helper()
	src := memSite("/src")
	require.NoError(t, fixture.Build(src))
	dst := memSite("/dst")
	result, err := engine.NewCloner().Clone(src, dst, model.Default)
	require.NoError(t, err)
	require.True(t, result.OK())
	return src, dst
}

func TestVerify_AfterClone(t *testing.T) {
	src, dst := clonedPair(t)

	report, err := verify.NewVerifier().Verify(src, dst, model.Scope{})
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, report.Missing)
	assert.Equal(t, len(fixture.Files)+len(fixture.Dirs), report.Checked)
}

func TestVerify_DetectsSingleDeletedFile(t *testing.T) {
	for _, f := range fixture.Files {
		t.Run(f, func(t *testing.T) {
			src, dst := clonedPair(t)
			p, err := fixture.Path(dst, f)
			require.NoError(t, err)
			require.NoError(t, dst.FS.(*fsys.AferoFS).Afero().Remove(string(p)))

			report, err := verify.NewVerifier().Verify(src, dst, model.Scope{})
			require.NoError(t, err)
			assert.False(t, report.Success)
			assert.Equal(t, []pathutil.Path{p}, report.Missing)
		})
	}
}

func TestVerify_ExtraDestinationEntriesAreFine(t *testing.T) {
	src, dst := clonedPair(t)
	require.NoError(t, dst.FS.CreateDirectoryIfMissing("/dst/extra"))
	require.NoError(t, afero.WriteFile(dst.FS.(*fsys.AferoFS).Afero(), "/dst/extra/stray", []byte("x"), 0o644))

	report, err := verify.NewVerifier().Verify(src, dst, model.Scope{})
	require.NoError(t, err)
	assert.True(t, report.Success)
}

func TestVerify_MissingSortedByRelativePath(t *testing.T) {
	src := memSite("/src")
	require.NoError(t, fixture.Build(src))
	dst := memSite("/dst")

	report, err := verify.NewVerifier().Verify(src, dst, model.Scope{})
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, []pathutil.Path{
		"/dst/dir01",
		"/dst/dir01/file02",
		"/dst/dir02",
		"/dst/dir02/dir03",
		"/dst/dir02/dir03/dir04",
		"/dst/dir02/dir03/dir04/file06",
		"/dst/dir02/dir03/file05",
		"/dst/dir02/file03",
		"/dst/dir02/file04",
		"/dst/file01",
	}, report.Missing)
}

func TestVerify_DoesNotTouchEitherSite(t *testing.T) {
	src, dst := clonedPair(t)
	ro := func(s fsys.Site) fsys.Site {
		return fsys.NewSite(fsys.NewReadOnly(s.FS.(*fsys.AferoFS).Afero(), pathutil.Slash), s.Root)
	}

	report, err := verify.NewVerifier().Verify(ro(src), ro(dst), model.Scope{})
	require.NoError(t, err)
	assert.True(t, report.Success)
}

func TestVerify_RespectsScope(t *testing.T) {
	src := memSite("/src")
	require.NoError(t, fixture.Build(src))
	dst := memSite("/dst")
	s := model.Scope{MaxDepth: 1, Exclude: []string{"dir01"}}

	_, err := engine.NewCloner().Clone(src, dst, model.Options{Scope: s})
	require.NoError(t, err)

	report, err := verify.NewVerifier().Verify(src, dst, s)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.Checked, "file01 and dir02")

	full, err := verify.NewVerifier().Verify(src, dst, model.Scope{})
	require.NoError(t, err)
	assert.False(t, full.Success)
}

func TestVerify_MissingDestinationRoot(t *testing.T) {
	src := memSite("/src")
	require.NoError(t, fixture.Build(src))

	report, err := verify.NewVerifier().Verify(src, memSite("/never-cloned"), model.Scope{})
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, len(fixture.Files)+len(fixture.Dirs), report.Checked)
	require.Len(t, report.Missing, report.Checked)
	assert.Contains(t, report.Missing, pathutil.Path("/never-cloned/dir02/dir03/dir04/file06"))
	assert.Contains(t, report.Missing, pathutil.Path("/never-cloned/dir01"))
}

func TestVerify_MissingSourceIsAnError(t *testing.T) {
	_, err := verify.NewVerifier().Verify(memSite("/nope"), memSite("/dst"), model.Scope{})
	require.ErrorIs(t, err, errclass.ErrIO)
}

func TestVerify_InvalidScope(t *testing.T) {
	_, err := verify.NewVerifier().Verify(memSite("/src"), memSite("/dst"), model.Scope{MaxDepth: -1})
	require.ErrorIs(t, err, errclass.ErrInvalidPath)
}

func TestVerify_ReportsProgress(t *testing.T) {
	src, dst := clonedPair(t)
	last := 0
	total := 0
	cb := func(op string, current, n int, message string) {
		assert.Equal(t, verify.OpCheck, op)
		last, total = current, n
	}
	_, err := verify.NewVerifier(verify.WithProgress(cb)).Verify(src, dst, model.Scope{})
	require.NoError(t, err)
	assert.Equal(t, total, last)
	assert.Equal(t, len(fixture.Files)+len(fixture.Dirs), total)
}
