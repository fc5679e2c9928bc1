package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/treeclone/pkg/color"
	"github.com/jvs-project/treeclone/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <command>",
		Short: "Manage treeclone configuration",
		Long: `Manage the treeclone configuration file.

Sections:
  clone    - default clone options (overwrite_existing_files, continue_on_error, max_depth, exclude)
  logging  - level (debug, info, warn, error) and format (json, text)
  metrics  - textfile path for Prometheus metrics
  lock     - enabled, dir and ttl of the destination lock
  journal  - path of the run journal
  jobs     - clone jobs run by "treeclone batch"

Available commands:
  show     - Show the effective configuration
  init     - Write a configuration file with the defaults`,
		DisableFlagsInUseLine: true,
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigInitCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Show the configuration after defaults, the config file, environment variables and flags are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonOutput {
				return a.outputJSON(a.cfg)
			}
			data, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the defaults",
		Long: `Write the default configuration to [path], or to --config, or to
./` + config.DefaultFileName + `. An existing file is kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.flags.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.DefaultFileName
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to replace it)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			if a.flags.jsonOutput {
				return a.outputJSON(map[string]string{"path": path})
			}
			fmt.Fprintf(a.out, "%s %s\n", color.Success("Wrote"), color.Path(path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	return cmd
}
