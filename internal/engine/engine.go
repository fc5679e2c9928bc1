// Package engine implements the cloning operator: it reproduces the tree under
// a source site at a destination site, streaming file contents through the
// two sites' capabilities.
package engine

import (
	"fmt"
	"time"

	"github.com/jvs-project/treeclone/internal/scope"
	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/logging"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
	"github.com/jvs-project/treeclone/pkg/progress"
)

// Progress op names reported by Clone.
const (
	OpMkdir = "mkdir"
	OpCopy  = "copy"
)

// Engine defines the cloning operator interface.
type Engine interface {
	// Clone reproduces src's tree under dst. The returned error is non-nil
	// only when the clone aborted; tolerated failures are in the result.
	Clone(src, dst fsys.Site, opts model.Options) (*model.CloneResult, error)
}

var _ Engine = (*Cloner)(nil)

// Cloner is the default Engine. It holds no per-call state and may be shared.
type Cloner struct {
	logger   *logging.Logger
	progress progress.Callback
}

// Option configures a Cloner.
type Option func(*Cloner)

// WithLogger routes clone diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(c *Cloner) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress reports every directory ensured and file copied to cb.
func WithProgress(cb progress.Callback) Option {
	return func(c *Cloner) {
		if cb != nil {
			c.progress = cb
		}
	}
}

// NewCloner creates a Cloner. Without options it is silent.
func NewCloner(opts ...Option) *Cloner {
	c := &Cloner{
		logger:   logging.Nop(),
		progress: progress.Noop,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Clone creates dst's root, then every in-scope directory, then copies every
// in-scope file. All directories are ensured before the first file is
// written. Path algebra violations always abort; I/O failures and conflicts
// abort unless opts.ContinueOnError is set, in which case failures are
// collected and conflicts are skipped.
func (c *Cloner) Clone(src, dst fsys.Site, opts model.Options) (*model.CloneResult, error) {
	start := time.Now()

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	mapper, err := scope.NewMapper(src, dst, opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	if err := checkDisjoint(src, dst); err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}

	run := &cloneRun{
		src:        src,
		dst:        dst,
		opts:       opts,
		mapper:     mapper,
		logger:     c.logger.WithFields(map[string]any{"source": string(src.Root), "destination": string(dst.Root)}),
		mkdirs:     progress.New(OpMkdir, 0, c.progress),
		copies:     progress.New(OpCopy, 0, c.progress),
		result:     &model.CloneResult{},
		unreadable: make(map[pathutil.Path]bool),
	}

	run.logger.Debug("clone started", map[string]any{
		"overwrite":         opts.OverwriteExistingFiles,
		"continue_on_error": opts.ContinueOnError,
		"max_depth":         opts.MaxDepth,
	})

	for _, phase := range []func() error{run.createRoot, run.createDirectories, run.copyFiles} {
		if err := phase(); err != nil {
			run.logger.ErrorErr("clone aborted", err)
			return nil, fmt.Errorf("clone: %w", err)
		}
	}

	run.mkdirs.Done("")
	run.copies.Done("")
	run.result.Duration = time.Since(start)
	run.logger.Info("clone finished", map[string]any{
		"copied":      run.result.Copied,
		"skipped":     run.result.Skipped,
		"directories": run.result.DirsCreated,
		"failures":    len(run.result.Failures),
		"duration_ms": run.result.Duration.Milliseconds(),
	})
	return run.result, nil
}

// checkDisjoint rejects a destination root that is the source root or lies
// under it in the same storage. The walk would otherwise descend into the
// directories it creates.
func checkDisjoint(src, dst fsys.Site) error {
	if !fsys.SameNamespace(src.FS, dst.FS) {
		return nil
	}
	if _, err := src.FS.Operator().Relativize(src.Root, dst.Root); err != nil {
		return nil
	}
	return errclass.InvalidPath(string(dst.Root), "destination is inside source %q", src.Root)
}
