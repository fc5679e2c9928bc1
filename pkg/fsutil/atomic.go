// Package fsutil provides staged writes that publish a file only once it is complete.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// TempPrefix starts the name of every staged file. A file with this prefix
// that outlives its writer is debris from an interrupted run.
const TempPrefix = ".treeclone-tmp-"

const tmpPattern = TempPrefix + "*"

// Staged is a file being written to a temporary name next to its target.
// Commit publishes it under the target name; Discard drops it.
type Staged struct {
	fs     afero.Fs
	tmp    afero.File
	target string
	perm   os.FileMode
	done   bool
}

// Stage opens a temporary file in the target's directory.
func Stage(fs afero.Fs, path string, perm os.FileMode) (*Staged, error) {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), tmpPattern)
	if err != nil {
		return nil, fmt.Errorf("stage create tmp: %w", err)
	}
	return &Staged{fs: fs, tmp: tmp, target: path, perm: perm}, nil
}

// Write appends to the staged content.
func (s *Staged) Write(p []byte) (int, error) {
	return s.tmp.Write(p)
}

// Commit fsyncs the staged file, then renames it over the target.
func (s *Staged) Commit() error {
	if s.done {
		return fmt.Errorf("stage commit %s: already finished", s.target)
	}
	s.done = true
	tmpPath := s.tmp.Name()

	success := false
	defer func() {
		if !success {
			s.tmp.Close()
			s.fs.Remove(tmpPath)
		}
	}()

	if err := s.tmp.Sync(); err != nil {
		return fmt.Errorf("stage fsync: %w", err)
	}
	if err := s.tmp.Close(); err != nil {
		return fmt.Errorf("stage close: %w", err)
	}
	if err := s.fs.Chmod(tmpPath, s.perm); err != nil {
		return fmt.Errorf("stage chmod: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.target); err != nil {
		return fmt.Errorf("stage rename: %w", err)
	}
	if err := FsyncDir(s.fs, filepath.Dir(s.target)); err != nil {
		return fmt.Errorf("stage fsync dir: %w", err)
	}

	success = true
	return nil
}

// Discard removes the staged file. It is a no-op after Commit.
func (s *Staged) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	s.tmp.Close()
	if err := s.fs.Remove(s.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stage discard: %w", err)
	}
	return nil
}

// AtomicWrite writes data to a temporary file, fsyncs, then renames to target path.
func AtomicWrite(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	s, err := Stage(fs, path, perm)
	if err != nil {
		return fmt.Errorf("atomic write: %w", err)
	}
	if _, err := s.Write(data); err != nil {
		s.Discard()
		return fmt.Errorf("atomic write: %w", err)
	}
	if err := s.Commit(); err != nil {
		return fmt.Errorf("atomic write: %w", err)
	}
	return nil
}

// FsyncDir fsyncs a directory so a rename inside it is durable.
func FsyncDir(fs afero.Fs, dirPath string) error {
	d, err := fs.Open(dirPath)
	if err != nil {
		return fmt.Errorf("fsync dir open: %w", err)
	}
	defer d.Close()
	return d.Sync()
}
