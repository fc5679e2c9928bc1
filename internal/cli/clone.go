package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jvs-project/treeclone/internal/batch"
	"github.com/jvs-project/treeclone/pkg/color"
	"github.com/jvs-project/treeclone/pkg/model"
)

// scopeFlags are shared by clone and verify.
type scopeFlags struct {
	maxDepth int
	exclude  []string
}

func (s *scopeFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&s.maxDepth, "max-depth", 0, "deepest level to include, 1 = direct children only (0 = unlimited)")
	fs.StringArrayVar(&s.exclude, "exclude", nil, "gitignore-style pattern to leave out (repeatable)")
}

// apply overlays explicitly set flags on base. Excludes are added to the
// configured ones.
func (s *scopeFlags) apply(fs *pflag.FlagSet, base model.Scope) model.Scope {
	out := model.Scope{MaxDepth: base.MaxDepth, Exclude: slices.Clone(base.Exclude)}
	if fs.Changed("max-depth") {
		out.MaxDepth = s.maxDepth
	}
	out.Exclude = append(out.Exclude, s.exclude...)
	return out
}

func newCloneCmd(a *app) *cobra.Command {
	var (
		scope           scopeFlags
		overwrite       bool
		continueOnError bool
		verifyAfter     bool
		noLock          bool
	)

	cmd := &cobra.Command{
		Use:   "clone <source> <destination>",
		Short: "Reproduce a directory tree at a destination",
		Long: `Reproduce the tree under <source> at <destination>.

Every directory is created before the first file is written. Existing
destination files are a conflict unless --overwrite is given; with
--continue-on-error conflicts are skipped and I/O failures are collected
instead of aborting the run.

Examples:
  treeclone clone ./data /backup/data
  treeclone clone ./data /backup/data --overwrite --verify
  treeclone clone ./src ./out --exclude '*.tmp' --exclude 'cache/' --max-depth 3`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := a.cfg.Clone
			opts.Scope = scope.apply(flags, opts.Scope)
			if flags.Changed("overwrite") {
				opts.OverwriteExistingFiles = overwrite
			}
			if flags.Changed("continue-on-error") {
				opts.ContinueOnError = continueOnError
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			src, dst, err := localSites(args[0], args[1])
			if err != nil {
				return err
			}
			if noLock {
				a.locks = nil
			}

			term := a.terminal()
			a.progress = term.Callback()
			res := a.execute(cmd.Context(), batch.Job{
				Name:        "clone",
				Source:      src,
				Destination: dst,
				Options:     opts,
				Verify:      verifyAfter,
			})
			term.Done("")

			if res.Err != nil && res.Clone == nil {
				return res.Err
			}
			if a.flags.jsonOutput {
				if err := a.outputJSON(res); err != nil {
					return err
				}
			} else {
				a.printClone(string(src.Root), string(dst.Root), res)
			}
			if res.Err != nil {
				return res.Err
			}
			if !res.OK() {
				return errReported
			}
			return nil
		}),
	}

	f := cmd.Flags()
	scope.register(f)
	f.BoolVar(&overwrite, "overwrite", false, "replace files that already exist at the destination")
	f.BoolVar(&continueOnError, "continue-on-error", false, "collect failures and skip conflicts instead of aborting")
	f.BoolVar(&verifyAfter, "verify", false, "verify the destination after cloning")
	f.BoolVar(&noLock, "no-lock", false, "do not take the destination lock")
	return cmd
}

func (a *app) printClone(src, dst string, res batch.Result) {
	w := a.out
	fmt.Fprintf(w, "%s %s -> %s\n", color.Header("Cloned"), color.Path(src), color.Path(dst))
	fmt.Fprintf(w, "  copied:      %s\n", count(res.Clone.Copied))
	fmt.Fprintf(w, "  skipped:     %s\n", count(res.Clone.Skipped))
	fmt.Fprintf(w, "  directories: %s\n", count(res.Clone.DirsCreated))
	fmt.Fprintf(w, "  failures:    %s\n", count(len(res.Clone.Failures)))
	fmt.Fprintf(w, "  duration:    %s\n", res.Clone.Duration.Round(time.Millisecond))

	for _, p := range res.Clone.SkippedPaths {
		fmt.Fprintf(w, "  %s %s\n", color.Warning("skipped"), p)
	}
	for _, f := range res.Clone.Failures {
		fmt.Fprintf(w, "  %s %s: %v\n", color.Error("failed"), f.Path, f.Err)
	}
	if res.Report != nil {
		a.printReport(res.Report)
	}
	if res.OK() {
		fmt.Fprintln(w, color.Success("OK"))
	}
}
