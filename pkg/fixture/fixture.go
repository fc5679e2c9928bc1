// Package fixture builds the example tree used by tests and by the
// "treeclone fixture" command.
package fixture

import (
	"fmt"
	"strings"

	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

// Files lists the example tree's files as slash-separated relative paths.
var Files = []string{
	"file01",
	"dir01/file02",
	"dir02/file03",
	"dir02/file04",
	"dir02/dir03/file05",
	"dir02/dir03/dir04/file06",
}

// Dirs lists the example tree's directories, parents first.
var Dirs = []string{
	"dir01",
	"dir02",
	"dir02/dir03",
	"dir02/dir03/dir04",
}

// Content returns the bytes written for the file at rel.
func Content(rel string) []byte {
	return []byte("content of " + rel + "\n")
}

// Build writes the example tree under site.Root. Existing files are replaced.
func Build(site fsys.Site) error {
	if err := site.FS.CreateDirectoryIfMissing(site.Root); err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	for _, d := range Dirs {
		p, err := Path(site, d)
		if err != nil {
			return err
		}
		if err := site.FS.CreateDirectoryIfMissing(p); err != nil {
			return fmt.Errorf("fixture: %w", err)
		}
	}
	for _, f := range Files {
		p, err := Path(site, f)
		if err != nil {
			return err
		}
		if err := write(site.FS, p, Content(f)); err != nil {
			return fmt.Errorf("fixture: %w", err)
		}
	}
	return nil
}

// Path maps a slash-separated relative path onto site.
func Path(site fsys.Site, rel string) (pathutil.Path, error) {
	op := site.FS.Operator()
	r, err := op.Join(strings.Split(rel, "/")...)
	if err != nil {
		return "", fmt.Errorf("fixture: %w", err)
	}
	p, err := op.Combine(site.Root, r)
	if err != nil {
		return "", fmt.Errorf("fixture: %w", err)
	}
	return p, nil
}

func write(fs fsys.FileSystem, p pathutil.Path, data []byte) error {
	w, err := fs.OpenForWrite(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Discard()
		return err
	}
	return w.Commit()
}
