package engine

import (
	"io"

	"github.com/jvs-project/treeclone/internal/scope"
	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/logging"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
	"github.com/jvs-project/treeclone/pkg/progress"
)

// cloneRun is the state of one Clone call.
type cloneRun struct {
	src    fsys.Site
	dst    fsys.Site
	opts   model.Options
	mapper *scope.Mapper
	logger *logging.Logger
	mkdirs *progress.Progress
	copies *progress.Progress
	result *model.CloneResult

	// unreadable holds source directories whose enumeration failed during
	// the directory pass, so the file pass does not report them again.
	unreadable map[pathutil.Path]bool
}

// tolerate records err against path when the options allow continuing, and
// returns it otherwise.
func (r *cloneRun) tolerate(path pathutil.Path, err error) error {
	if errclass.Fatal(err) || !r.opts.ContinueOnError {
		return err
	}
	r.logger.Warn("entry failed", map[string]any{"path": string(path), "error": err.Error()})
	r.result.Failures = append(r.result.Failures, model.Failure{Path: path, Err: err})
	return nil
}

func (r *cloneRun) createRoot() error {
	if err := r.dst.FS.CreateDirectoryIfMissing(r.dst.Root); err != nil {
		return r.tolerate(r.dst.Root, errclass.IO(string(r.dst.Root), "create directory", err))
	}
	return nil
}

// createDirectories is the first pass over the source: it ensures every
// in-scope directory exists at the destination.
func (r *cloneRun) createDirectories() error {
	for e, err := range r.src.FS.Enumerate(r.src.Root, true) {
		if err != nil {
			r.unreadable[e.Path] = true
			if err := r.tolerate(e.Path, errclass.IO(string(e.Path), "read directory", err)); err != nil {
				return err
			}
			continue
		}
		if !e.IsDir() {
			continue
		}

		m, err := r.mapper.Map(e)
		if err != nil {
			return err
		}
		if !m.InScope {
			continue
		}
		if err := r.dst.FS.CreateDirectoryIfMissing(m.Dest); err != nil {
			if err := r.tolerate(m.Dest, errclass.IO(string(m.Dest), "create directory", err)); err != nil {
				return err
			}
			continue
		}
		r.result.DirsCreated++
		r.mkdirs.Increment(m.SlashRel)
	}
	return nil
}

// copyFiles is the second pass: it copies every in-scope file, honoring the
// overwrite policy.
func (r *cloneRun) copyFiles() error {
	for e, err := range r.src.FS.Enumerate(r.src.Root, true) {
		if err != nil {
			if r.unreadable[e.Path] {
				continue
			}
			if err := r.tolerate(e.Path, errclass.IO(string(e.Path), "read directory", err)); err != nil {
				return err
			}
			continue
		}
		if e.IsDir() {
			continue
		}

		m, err := r.mapper.Map(e)
		if err != nil {
			return err
		}
		if !m.InScope {
			continue
		}
		if err := r.copyEntry(e.Path, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *cloneRun) copyEntry(src pathutil.Path, m scope.Mapping) error {
	exists, err := r.dst.FS.Exists(m.Dest)
	if err != nil {
		return r.tolerate(m.Dest, errclass.IO(string(m.Dest), "stat", err))
	}
	if exists && !r.opts.OverwriteExistingFiles {
		if !r.opts.ContinueOnError {
			return errclass.Conflict(string(m.Dest))
		}
		r.logger.Debug("skipped existing file", map[string]any{"path": string(m.Dest)})
		r.result.Skipped++
		r.result.SkippedPaths = append(r.result.SkippedPaths, m.Dest)
		return nil
	}

	if err := r.copyFile(src, m.Dest); err != nil {
		return r.tolerate(m.Dest, err)
	}
	r.result.Copied++
	r.copies.Increment(m.SlashRel)
	return nil
}

// copyFile streams src into a staged destination file. The destination path
// only ever holds the previous content or the complete new content.
func (r *cloneRun) copyFile(src, dst pathutil.Path) error {
	in, err := r.src.FS.OpenForRead(src)
	if err != nil {
		return errclass.IO(string(src), "open for read", err)
	}
	defer in.Close()

	out, err := r.dst.FS.OpenForWrite(dst)
	if err != nil {
		return errclass.IO(string(dst), "open for write", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Discard()
		return errclass.IO(string(src), "copy", err)
	}
	return errclass.IO(string(dst), "commit", out.Commit())
}
