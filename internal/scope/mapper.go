// Package scope maps source entries to their destination paths and decides
// which entries a clone or verification covers.
package scope

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

// Mapper computes, for an entry under the source root, its relative path and
// its expected path under the destination root.
type Mapper struct {
	srcRoot pathutil.Path
	dstRoot pathutil.Path
	srcOp   pathutil.Operator
	dstOp   pathutil.Operator
	scope   model.Scope
	ignore  *ignore.GitIgnore
}

// Mapping is the result of mapping one source entry.
type Mapping struct {
	Rel      pathutil.Path // relative to the source root, in source syntax
	Dest     pathutil.Path
	InScope  bool
	SlashRel string // Rel with forward slashes; stable sort and match key
}

// NewMapper validates s and prepares a mapper between the two sites.
func NewMapper(src, dst fsys.Site, s model.Scope) (*Mapper, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m := &Mapper{
		srcRoot: src.Root,
		dstRoot: dst.Root,
		srcOp:   src.FS.Operator(),
		dstOp:   dst.FS.Operator(),
		scope:   s,
	}
	if len(s.Exclude) > 0 {
		m.ignore = ignore.CompileIgnoreLines(s.Exclude...)
	}
	return m, nil
}

// Map relativizes e against the source root and rebases it on the destination
// root. Path algebra failures are returned as errclass.ErrInvalidPath.
func (m *Mapper) Map(e fsys.Entry) (Mapping, error) {
	rel, err := m.srcOp.Relativize(m.srcRoot, e.Path)
	if err != nil {
		return Mapping{}, err
	}
	segments := m.srcOp.Segments(rel)
	slashRel := strings.Join(segments, "/")

	dstRel := rel
	if m.srcOp.Separator() != m.dstOp.Separator() {
		if dstRel, err = m.dstOp.Join(segments...); err != nil {
			return Mapping{}, err
		}
	}
	dest, err := m.dstOp.Combine(m.dstRoot, dstRel)
	if err != nil {
		return Mapping{}, err
	}

	return Mapping{
		Rel:      rel,
		Dest:     dest,
		InScope:  m.includes(segments, e.IsDir()),
		SlashRel: slashRel,
	}, nil
}

// includes applies the depth limit and exclude patterns. An entry under an
// excluded directory is excluded too.
func (m *Mapper) includes(segments []string, isDir bool) bool {
	if m.scope.MaxDepth > 0 && len(segments) > m.scope.MaxDepth {
		return false
	}
	if m.ignore == nil {
		return true
	}
	for i := 1; i <= len(segments); i++ {
		candidate := strings.Join(segments[:i], "/")
		if i < len(segments) || isDir {
			if m.ignore.MatchesPath(candidate + "/") {
				return false
			}
		}
		if m.ignore.MatchesPath(candidate) {
			return false
		}
	}
	return true
}
