package pathutil

import (
	"os"
	"strings"

	"github.com/jvs-project/treeclone/pkg/errclass"
)

// Path is an opaque location within one site's namespace. Paths are built and
// split only through an Operator; they carry no meaning across operators with
// different separators.
type Path string

func (p Path) String() string {
	return string(p)
}

// Operator is a pure path algebra over Path values. It never touches storage
// and never normalizes its inputs, so the same inputs always give the same output.
type Operator struct {
	sep byte
}

// Slash is the operator for forward-slash namespaces (in-memory and remote stores).
var Slash = Operator{sep: '/'}

// Native returns the operator for the local operating system's separator.
func Native() Operator {
	return Operator{sep: os.PathSeparator}
}

// NewOperator creates an operator for a custom separator.
func NewOperator(sep byte) Operator {
	return Operator{sep: sep}
}

// Separator returns the operator's separator.
func (o Operator) Separator() byte {
	return o.sep
}

// IsAbs reports whether p is absolute under this operator's rules: it starts
// with the separator, or for backslash operators with a drive volume such as "C:".
func (o Operator) IsAbs(p Path) bool {
	s := string(p)
	if s == "" {
		return false
	}
	if s[0] == o.sep {
		return true
	}
	return o.sep == '\\' && len(s) >= 2 && s[1] == ':' && isLetter(s[0])
}

// Combine appends rel under base. rel must be relative and must not climb out
// of base through a ".." segment.
func (o Operator) Combine(base, rel Path) (Path, error) {
	if rel == "" {
		return base, nil
	}
	if o.IsAbs(rel) {
		return "", errclass.InvalidPath(string(rel), "absolute path cannot be combined under %q", base)
	}
	if o.hasDotDot(rel) {
		return "", errclass.InvalidPath(string(rel), "relative path escapes %q", base)
	}
	return Path(o.prefix(base) + string(rel)), nil
}

// Relativize expresses full relative to base. full must be base itself or one of
// its descendants; Relativize(base, base) is the empty path.
func (o Operator) Relativize(base, full Path) (Path, error) {
	trimmed := o.trim(base)
	if full == base || string(full) == trimmed {
		return "", nil
	}
	prefix := o.prefix(base)
	if !strings.HasPrefix(string(full), prefix) {
		return "", errclass.InvalidPath(string(full), "not a descendant of %q", base)
	}
	rel := Path(string(full)[len(prefix):])
	if rel == "" {
		return "", nil
	}
	if o.IsAbs(rel) || o.hasDotDot(rel) {
		return "", errclass.InvalidPath(string(full), "not a descendant of %q", base)
	}
	return rel, nil
}

// DirectoryPath returns the path of the directory called name directly under base.
func (o Operator) DirectoryPath(base Path, name string) (Path, error) {
	if err := o.validateSegment(name); err != nil {
		return "", err
	}
	return o.Combine(base, Path(name))
}

// FilePath returns the path of the file called name directly under base.
func (o Operator) FilePath(base Path, name string) (Path, error) {
	if err := o.validateSegment(name); err != nil {
		return "", err
	}
	return o.Combine(base, Path(name))
}

// Join builds a relative path from segments.
func (o Operator) Join(segments ...string) (Path, error) {
	var p Path
	for _, s := range segments {
		if err := o.validateSegment(s); err != nil {
			return "", err
		}
		if p == "" {
			p = Path(s)
			continue
		}
		p = Path(string(p) + string(o.sep) + s)
	}
	return p, nil
}

// Segments splits a relative path into its non-empty segments.
func (o Operator) Segments(rel Path) []string {
	var out []string
	for _, s := range strings.Split(string(rel), string(o.sep)) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Depth is the number of segments in a relative path; entries directly under
// a root have depth 1.
func (o Operator) Depth(rel Path) int {
	return len(o.Segments(rel))
}

// ToSlash renders a relative path with forward slashes, for pattern matching
// and stable sort keys.
func (o Operator) ToSlash(rel Path) string {
	if o.sep == '/' {
		return string(rel)
	}
	return strings.ReplaceAll(string(rel), string(o.sep), "/")
}

// trim drops trailing separators from base, keeping a lone root separator.
func (o Operator) trim(base Path) string {
	s := strings.TrimRight(string(base), string(o.sep))
	if s == "" && base != "" {
		return string(o.sep)
	}
	return s
}

// prefix is base followed by exactly one separator, or empty for an empty base.
func (o Operator) prefix(base Path) string {
	s := o.trim(base)
	switch {
	case s == "":
		return ""
	case s == string(o.sep):
		return s
	default:
		return s + string(o.sep)
	}
}

func (o Operator) hasDotDot(rel Path) bool {
	for _, s := range strings.Split(string(rel), string(o.sep)) {
		if s == ".." {
			return true
		}
	}
	return false
}

func (o Operator) validateSegment(name string) error {
	switch {
	case name == "":
		return errclass.InvalidPath(name, "name must not be empty")
	case name == "." || name == "..":
		return errclass.InvalidPath(name, "name must not be a relative reference")
	case strings.IndexByte(name, o.sep) >= 0:
		return errclass.InvalidPath(name, "name must be a single segment")
	case strings.IndexByte(name, 0) >= 0:
		return errclass.InvalidPath(name, "name must not contain NUL")
	}
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
