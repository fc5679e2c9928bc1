package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jvs-project/treeclone/pkg/color"
	"github.com/jvs-project/treeclone/pkg/fixture"
	"github.com/jvs-project/treeclone/pkg/treeclone"
)

func newFixtureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fixture <dir>",
		Short: "Write the example tree to a directory",
		Long: `Write the six-file example tree under <dir>, creating it if needed.
Existing example files are replaced; other files are left alone.

Example:
  treeclone fixture /tmp/example && treeclone clone /tmp/example /tmp/copy --verify`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve dir: %w", err)
			}
			if err := fixture.Build(treeclone.LocalSite(dir)); err != nil {
				return err
			}

			if a.flags.jsonOutput {
				return a.outputJSON(map[string]any{
					"root":        dir,
					"files":       fixture.Files,
					"directories": fixture.Dirs,
				})
			}
			fmt.Fprintf(a.out, "Wrote example tree (%d files, %d directories) to %s\n",
				len(fixture.Files), len(fixture.Dirs), color.Path(dir))
			return nil
		}),
	}
}
