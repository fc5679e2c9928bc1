package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/treeclone/pkg/color"
	"github.com/jvs-project/treeclone/pkg/model"
)

func newVerifyCmd(a *app) *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:   "verify <source> <destination>",
		Short: "Check that every source entry exists at the destination",
		Long: `Check that every file and directory under <source> has a counterpart
at the same relative path under <destination>. Contents are not compared
and extra destination entries are ignored.

Exits with status 1 when entries are missing.

Examples:
  treeclone verify ./data /backup/data
  treeclone verify ./data /backup/data --exclude '*.tmp' --json`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s := scope.apply(cmd.Flags(), a.cfg.Clone.Scope)
			src, dst, err := localSites(args[0], args[1])
			if err != nil {
				return err
			}

			term := a.terminal()
			a.progress = term.Callback()
			report, err := a.verify(cmd.Context(), src, dst, s)
			term.Done("")
			if err != nil {
				return err
			}

			if a.flags.jsonOutput {
				if err := a.outputJSON(report); err != nil {
					return err
				}
			} else {
				a.printReport(report)
			}
			if !report.Success {
				return errReported
			}
			return nil
		}),
	}
	scope.register(cmd.Flags())
	return cmd
}

func (a *app) printReport(report *model.VerificationReport) {
	w := a.out
	if report.Success {
		fmt.Fprintf(w, "%s %s entries checked, none missing\n", color.Success("verified:"), count(report.Checked))
		return
	}
	fmt.Fprintf(w, "%s %s of %s entries missing\n", color.Error("verification failed:"),
		count(len(report.Missing)), count(report.Checked))
	for _, p := range report.Missing {
		fmt.Fprintf(w, "  %s %s\n", color.Error("missing"), p)
	}
}
