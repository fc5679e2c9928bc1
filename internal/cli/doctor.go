package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jvs-project/treeclone/internal/doctor"
	"github.com/jvs-project/treeclone/pkg/color"
)

func newDoctorCmd(a *app) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "doctor [destination...]",
		Short: "Check the journal, locks and destinations for leftovers",
		Long: `Check the state treeclone keeps between runs.

Checks:
  - the run journal's hash chain is intact
  - destination locks, reporting expired ones
  - staged files left behind by interrupted copies, under the given
    destinations and every configured job destination

With --repair, expired locks and leftover staged files are removed.
Exits with status 1 when the journal is broken.`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			var roots []string
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				roots = append(roots, abs)
			}
			for _, j := range a.cfg.Jobs {
				if abs, err := filepath.Abs(j.Destination); err == nil {
					roots = append(roots, abs)
				}
			}

			doc := doctor.NewDoctor(doctor.Options{
				Locks:       a.locks,
				JournalPath: a.cfg.Journal.Path,
				Roots:       roots,
			})

			var repairs []doctor.RepairResult
			if repair {
				var ids []string
				for _, action := range doc.ListRepairActions() {
					if action.AutoSafe {
						ids = append(ids, action.ID)
					}
				}
				var err error
				if repairs, err = doc.Repair(ids); err != nil {
					return err
				}
			}

			result, err := doc.Check()
			if err != nil {
				return err
			}

			if a.flags.jsonOutput {
				if err := a.outputJSON(map[string]any{"result": result, "repairs": repairs}); err != nil {
					return err
				}
			} else {
				for _, r := range repairs {
					status := color.Success("done")
					if !r.Success {
						status = color.Error("failed")
					}
					fmt.Fprintf(a.out, "repair %s: %s (%s)\n", r.Action, status, r.Message)
				}
				if len(result.Findings) == 0 {
					fmt.Fprintln(a.out, color.Success("No issues found."))
				}
				for _, f := range result.Findings {
					sev := f.Severity
					switch sev {
					case "critical":
						sev = color.Error(sev)
					case "warning":
						sev = color.Warning(sev)
					default:
						sev = color.Dim(sev)
					}
					fmt.Fprintf(a.out, "[%s] %s: %s\n", sev, f.Category, f.Description)
					if f.Path != "" {
						fmt.Fprintf(a.out, "    %s\n", color.Path(f.Path))
					}
				}
			}
			if !result.Healthy {
				return errReported
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "remove expired locks and leftover staged files")
	return cmd
}
