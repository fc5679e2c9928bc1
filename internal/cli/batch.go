package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvs-project/treeclone/internal/batch"
	"github.com/jvs-project/treeclone/pkg/color"
	"github.com/jvs-project/treeclone/pkg/template"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		parallel int
		only     []string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the clone jobs listed in the config file",
		Long: `Run every job in the config file's jobs list, or only those named with
--job. Jobs with different destinations run in parallel; jobs sharing a
destination run one after the other in list order.

Job paths may contain placeholders: {job}, {date}, {time}, {datetime},
{unix} and {hostname}. Times are UTC and fixed once per batch.

Example config:
  jobs:
    - name: photos
      source: /data/photos
      destination: /backup/photos
      verify: true
    - name: docs
      source: /data/docs
      destination: /backup/{date}/{job}
      options:
        overwrite_existing_files: true`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			var jobs []batch.Job
			for _, j := range a.cfg.Jobs {
				if len(only) > 0 && !slices.Contains(only, j.Name) {
					continue
				}
				vars := template.Vars{"job": j.Name}
				source, err := template.Expand(j.Source, now, vars)
				if err != nil {
					return fmt.Errorf("job %q: %w", j.Name, err)
				}
				destination, err := template.Expand(j.Destination, now, vars)
				if err != nil {
					return fmt.Errorf("job %q: %w", j.Name, err)
				}
				src, dst, err := localSites(source, destination)
				if err != nil {
					return fmt.Errorf("job %q: %w", j.Name, err)
				}
				jobs = append(jobs, batch.Job{
					Name:        j.Name,
					Source:      src,
					Destination: dst,
					Options:     j.EffectiveOptions(a.cfg.Clone),
					Verify:      j.Verify,
				})
			}
			if len(jobs) == 0 {
				return fmt.Errorf("no jobs to run; add a jobs list to the config file")
			}

			a.logger.Info("batch started", map[string]any{"jobs": len(jobs), "parallel": parallel})
			results := batch.NewRunner(a.execute, parallel).Run(cmd.Context(), jobs)

			failed := 0
			for _, r := range results {
				if !r.OK() {
					failed++
				}
			}

			if a.flags.jsonOutput {
				if err := a.outputJSON(results); err != nil {
					return err
				}
			} else {
				a.printBatch(results, failed)
			}
			if failed > 0 {
				return errReported
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&parallel, "parallel", 4, "maximum number of destinations cloned at once")
	cmd.Flags().StringArrayVar(&only, "job", nil, "run only the named job (repeatable)")
	return cmd
}

func (a *app) printBatch(results []batch.Result, failed int) {
	w := a.out
	width := len("JOB")
	for _, r := range results {
		width = max(width, len(r.Job))
	}

	fmt.Fprintf(w, "%-*s  %-6s  %8s  %8s  %8s  %8s  %s\n", width, "JOB", "STATUS", "COPIED", "SKIPPED", "FAILED", "MISSING", "DURATION")
	for _, r := range results {
		status := color.Success("ok    ")
		if !r.OK() {
			status = color.Error("failed")
		}
		copied, skipped, failures, missing := "-", "-", "-", "-"
		if r.Clone != nil {
			copied = count(r.Clone.Copied)
			skipped = count(r.Clone.Skipped)
			failures = count(len(r.Clone.Failures))
		}
		if r.Report != nil {
			missing = count(len(r.Report.Missing))
		}
		fmt.Fprintf(w, "%-*s  %s  %8s  %8s  %8s  %8s  %s\n", width, r.Job, status, copied, skipped, failures, missing, r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(w, "  %s\n", color.Dim(r.Error))
		}
	}

	fmt.Fprintf(w, "\n%s of %s jobs succeeded\n", count(len(results)-failed), count(len(results)))
}
