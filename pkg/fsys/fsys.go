// Package fsys defines the storage capability the clone and verify operators
// depend on, and the Site that pairs a capability with a root path.
//
// Any backend (local disk, in-memory store, remote store) implements
// FileSystem with POSIX-like semantics: directory creation and deletion are
// idempotent, and recursive enumeration yields both files and directories.
package fsys

import (
	"fmt"
	"io"
	"iter"
	"reflect"

	"github.com/jvs-project/treeclone/pkg/pathutil"
)

// EntryKind tags an enumerated entry as a directory or a file.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
)

func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Entry is a path discovered during enumeration.
type Entry struct {
	Path pathutil.Path
	Kind EntryKind
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// FileWriter receives the bytes of one destination file. Nothing is visible at
// the destination path until Commit; Discard drops the bytes written so far.
type FileWriter interface {
	io.Writer
	Commit() error
	Discard() error
}

// FileSystem is the capability contract for one storage backend. Failures are
// reported as errclass.ErrIO errors carrying the offending path.
type FileSystem interface {
	// Enumerate lazily yields every entry under root, excluding root itself.
	// With recursive false only immediate children are produced. Order is unspecified.
	Enumerate(root pathutil.Path, recursive bool) iter.Seq2[Entry, error]

	// CreateDirectoryIfMissing creates p and any missing parents.
	CreateDirectoryIfMissing(p pathutil.Path) error

	// DeleteDirectoryIfExists removes p and everything under it.
	DeleteDirectoryIfExists(p pathutil.Path) error

	OpenForRead(p pathutil.Path) (io.ReadCloser, error)
	OpenForWrite(p pathutil.Path) (FileWriter, error)
	Exists(p pathutil.Path) (bool, error)

	// Operator returns the path algebra matching this backend's namespace.
	Operator() pathutil.Operator
}

// SameNamespace reports whether a and b resolve paths against the same
// storage, so a path under one root is also under the other. Unknown
// backends are the same only when they are the same value.
func SameNamespace(a, b FileSystem) bool {
	aa, aok := a.(*AferoFS)
	bb, bok := b.(*AferoFS)
	if aok && bok {
		return aa.sameStorage(bb)
	}
	return isComparable(a) && isComparable(b) && a == b
}

// isComparable reports whether v can be compared with == without panicking.
func isComparable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

// Site is one endpoint of a clone. Operators borrow it for a single call.
type Site struct {
	FS   FileSystem
	Root pathutil.Path
}

// NewSite pairs a capability with a root path.
func NewSite(fs FileSystem, root pathutil.Path) Site {
	return Site{FS: fs, Root: root}
}

func (s Site) String() string {
	return fmt.Sprintf("%T:%s", s.FS, s.Root)
}
