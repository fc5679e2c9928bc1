package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/treeclone/internal/scope"
	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

func sites(srcOp, dstOp pathutil.Operator, srcRoot, dstRoot pathutil.Path) (fsys.Site, fsys.Site) {
	src := fsys.NewSite(fsys.NewAfero(nil, srcOp), srcRoot)
	dst := fsys.NewSite(fsys.NewAfero(nil, dstOp), dstRoot)
	return src, dst
}

func TestMap_RebasesOnDestination(t *testing.T) {
	src, dst := sites(pathutil.Slash, pathutil.Slash, "/src", "/dst/")
	m, err := scope.NewMapper(src, dst, model.Scope{})
	require.NoError(t, err)

	got, err := m.Map(fsys.Entry{Path: "/src/dir02/dir03/file05", Kind: fsys.KindFile})
	require.NoError(t, err)
	assert.Equal(t, pathutil.Path("dir02/dir03/file05"), got.Rel)
	assert.Equal(t, pathutil.Path("/dst/dir02/dir03/file05"), got.Dest)
	assert.Equal(t, "dir02/dir03/file05", got.SlashRel)
	assert.True(t, got.InScope)
}

func TestMap_CrossSeparator(t *testing.T) {
	src, dst := sites(pathutil.Slash, pathutil.NewOperator('\\'), "/src", `C:\dst`)
	m, err := scope.NewMapper(src, dst, model.Scope{})
	require.NoError(t, err)

	got, err := m.Map(fsys.Entry{Path: "/src/a/b.txt", Kind: fsys.KindFile})
	require.NoError(t, err)
	assert.Equal(t, pathutil.Path(`C:\dst\a\b.txt`), got.Dest)
	assert.Equal(t, "a/b.txt", got.SlashRel)
}

func TestMap_OutsideRootIsInvalid(t *testing.T) {
	src, dst := sites(pathutil.Slash, pathutil.Slash, "/src", "/dst")
	m, err := scope.NewMapper(src, dst, model.Scope{})
	require.NoError(t, err)

	_, err = m.Map(fsys.Entry{Path: "/other/file", Kind: fsys.KindFile})
	require.ErrorIs(t, err, errclass.ErrInvalidPath)
}

func TestMap_MaxDepth(t *testing.T) {
	src, dst := sites(pathutil.Slash, pathutil.Slash, "/src", "/dst")
	m, err := scope.NewMapper(src, dst, model.Scope{MaxDepth: 2})
	require.NoError(t, err)

	cases := map[pathutil.Path]bool{
		"/src/file01":             true,
		"/src/dir02":              true,
		"/src/dir02/file04":       true,
		"/src/dir02/dir03":        true,
		"/src/dir02/dir03/file05": false,
	}
	for p, want := range cases {
		got, err := m.Map(fsys.Entry{Path: p})
		require.NoError(t, err)
		assert.Equal(t, want, got.InScope, p)
	}
}

func TestMap_Exclude(t *testing.T) {
	src, dst := sites(pathutil.Slash, pathutil.Slash, "/src", "/dst")
	m, err := scope.NewMapper(src, dst, model.Scope{Exclude: []string{"*.tmp", "cache/"}})
	require.NoError(t, err)

	cases := []struct {
		entry fsys.Entry
		want  bool
	}{
		{fsys.Entry{Path: "/src/keep.txt"}, true},
		{fsys.Entry{Path: "/src/scratch.tmp"}, false},
		{fsys.Entry{Path: "/src/a/b/scratch.tmp"}, false},
		{fsys.Entry{Path: "/src/cache", Kind: fsys.KindDir}, false},
		{fsys.Entry{Path: "/src/cache/blob"}, false},
		{fsys.Entry{Path: "/src/cached.txt"}, true},
	}
	for _, tc := range cases {
		got, err := m.Map(tc.entry)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.InScope, tc.entry.Path)
	}
}

func TestNewMapper_RejectsInvalidScope(t *testing.T) {
	src, dst := sites(pathutil.Slash, pathutil.Slash, "/src", "/dst")
	_, err := scope.NewMapper(src, dst, model.Scope{MaxDepth: -3})
	require.ErrorIs(t, err, errclass.ErrInvalidPath)
}
