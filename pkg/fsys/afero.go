package fsys

import (
	"errors"
	"io"
	"iter"
	"os"

	"github.com/spf13/afero"

	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fsutil"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

var _ FileSystem = (*AferoFS)(nil)

// AferoFS implements FileSystem over any afero.Fs.
type AferoFS struct {
	fs   afero.Fs
	base afero.Fs // fs without wrappers such as ReadOnlyFs
	op   pathutil.Operator
}

// NewAfero wraps fs; op must match the separator fs expects.
func NewAfero(fs afero.Fs, op pathutil.Operator) *AferoFS {
	return &AferoFS{fs: fs, base: fs, op: op}
}

// NewLocal returns a backend over the local disk.
func NewLocal() *AferoFS {
	return NewAfero(afero.NewOsFs(), pathutil.Native())
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *AferoFS {
	return NewAfero(afero.NewMemMapFs(), pathutil.Native())
}

// NewReadOnly returns a backend over fs that rejects every mutation.
func NewReadOnly(fs afero.Fs, op pathutil.Operator) *AferoFS {
	return &AferoFS{fs: afero.NewReadOnlyFs(fs), base: fs, op: op}
}

// sameStorage reports whether a and o address the same files. Every OsFs
// addresses the local disk.
func (a *AferoFS) sameStorage(o *AferoFS) bool {
	if a == o {
		return true
	}
	_, aDisk := a.base.(*afero.OsFs)
	_, oDisk := o.base.(*afero.OsFs)
	if aDisk || oDisk {
		return aDisk && oDisk
	}
	return isComparable(a.base) && a.base == o.base
}

// Afero exposes the wrapped filesystem.
func (a *AferoFS) Afero() afero.Fs {
	return a.fs
}

// Operator returns the backend's path algebra.
func (a *AferoFS) Operator() pathutil.Operator {
	return a.op
}

// maxLinkDepth bounds how many symlinked directories one walk path may pass
// through, matching the usual ELOOP limit.
const maxLinkDepth = 40

// Enumerate walks depth-first, reading one directory at a time, so memory
// stays proportional to the depth of the tree rather than its size.
// Symlinks are followed and reported with the kind of their target.
func (a *AferoFS) Enumerate(root pathutil.Path, recursive bool) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		a.walk(root, recursive, 0, yield)
	}
}

func (a *AferoFS) walk(dir pathutil.Path, recursive bool, links int, yield func(Entry, error) bool) bool {
	infos, err := afero.ReadDir(a.fs, string(dir))
	if err != nil {
		return yield(Entry{Path: dir, Kind: KindDir}, errclass.IO(string(dir), "read directory", err))
	}

	for _, info := range infos {
		p, err := a.op.FilePath(dir, info.Name())
		if err != nil {
			if !yield(Entry{Path: dir, Kind: kindOf(info)}, err) {
				return false
			}
			continue
		}

		depth := links
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := a.fs.Stat(string(p))
			if err != nil {
				if !yield(Entry{Path: p, Kind: KindFile}, errclass.IO(string(p), "follow symlink", err)) {
					return false
				}
				continue
			}
			info = target
			depth++
		}

		kind := kindOf(info)
		if !yield(Entry{Path: p, Kind: kind}, nil) {
			return false
		}
		if kind != KindDir || !recursive {
			continue
		}
		if depth > maxLinkDepth {
			if !yield(Entry{Path: p, Kind: KindDir}, errclass.IO(string(p), "read directory", errors.New("too many levels of symbolic links"))) {
				return false
			}
			continue
		}
		if !a.walk(p, recursive, depth, yield) {
			return false
		}
	}
	return true
}

func kindOf(info os.FileInfo) EntryKind {
	if info.IsDir() {
		return KindDir
	}
	return KindFile
}

// CreateDirectoryIfMissing creates p and any missing parents.
func (a *AferoFS) CreateDirectoryIfMissing(p pathutil.Path) error {
	if err := a.fs.MkdirAll(string(p), dirPerm); err != nil {
		return errclass.IO(string(p), "create directory", err)
	}
	return nil
}

// DeleteDirectoryIfExists removes p recursively; a missing p is not an error.
func (a *AferoFS) DeleteDirectoryIfExists(p pathutil.Path) error {
	if err := a.fs.RemoveAll(string(p)); err != nil {
		return errclass.IO(string(p), "delete directory", err)
	}
	return nil
}

// OpenForRead opens p for streaming. The caller closes it.
func (a *AferoFS) OpenForRead(p pathutil.Path) (io.ReadCloser, error) {
	f, err := a.fs.Open(string(p))
	if err != nil {
		return nil, errclass.IO(string(p), "open for read", err)
	}
	return f, nil
}

// OpenForWrite stages a new version of p. The caller must Commit or Discard.
func (a *AferoFS) OpenForWrite(p pathutil.Path) (FileWriter, error) {
	s, err := fsutil.Stage(a.fs, string(p), filePerm)
	if err != nil {
		return nil, errclass.IO(string(p), "open for write", err)
	}
	return &stagedWriter{path: p, staged: s}, nil
}

// Exists reports whether anything is present at p.
func (a *AferoFS) Exists(p pathutil.Path) (bool, error) {
	ok, err := afero.Exists(a.fs, string(p))
	if err != nil {
		return false, errclass.IO(string(p), "stat", err)
	}
	return ok, nil
}

// stagedWriter classifies staging failures as IO errors on the target path.
type stagedWriter struct {
	path   pathutil.Path
	staged *fsutil.Staged
}

func (w *stagedWriter) Write(b []byte) (int, error) {
	n, err := w.staged.Write(b)
	if err != nil {
		return n, errclass.IO(string(w.path), "write", err)
	}
	return n, nil
}

func (w *stagedWriter) Commit() error {
	return errclass.IO(string(w.path), "commit", w.staged.Commit())
}

func (w *stagedWriter) Discard() error {
	return errclass.IO(string(w.path), "discard", w.staged.Discard())
}
