// Package cli implements the treeclone command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jvs-project/treeclone/internal/journal"
	"github.com/jvs-project/treeclone/internal/lock"
	"github.com/jvs-project/treeclone/pkg/color"
	"github.com/jvs-project/treeclone/pkg/config"
	"github.com/jvs-project/treeclone/pkg/logging"
	"github.com/jvs-project/treeclone/pkg/metrics"
	"github.com/jvs-project/treeclone/pkg/progress"
)

// errReported ends a command with exit status 1 after it has already told
// the user what went wrong.
var errReported = errors.New("failure reported")

type globalFlags struct {
	configPath  string
	jsonOutput  bool
	logLevel    string
	noColor     bool
	metricsFile string
	journalPath string
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags globalFlags

	cfg      *config.Config
	logger   *logging.Logger
	metrics  *metrics.Registry
	locks    *lock.Manager     // nil when locking is off
	journal  *journal.Appender // nil when no journal is configured
	progress progress.Callback

	out    io.Writer
	errOut io.Writer
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	a := &app{progress: progress.Noop}
	cmd := &cobra.Command{
		Use:   "treeclone",
		Short: "treeclone - reproduce directory trees between filesystems",
		Long: `treeclone copies a directory tree from a source to a destination,
directories first and then files, and verifies that every source entry
exists at the destination.

Settings come from treeclone.yaml (or --config), then TREECLONE_<SECTION>_<KEY>
environment variables, then command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ./"+config.DefaultFileName+")")
	pf.BoolVar(&a.flags.jsonOutput, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	pf.StringVar(&a.flags.journalPath, "journal", "", "append a record of each run to this JSONL journal")

	cmd.AddCommand(
		newCloneCmd(a),
		newVerifyCmd(a),
		newFixtureCmd(a),
		newBatchCmd(a),
		newConfigCmd(a),
		newDoctorCmd(a),
	)
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmtErr(os.Stderr, "%v", err)
		}
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger, metrics, lock manager
// and journal every command shares.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	path := a.flags.configPath
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.metricsFile != "" {
		cfg.Metrics.Textfile = a.flags.metricsFile
	}
	if a.flags.journalPath != "" {
		cfg.Journal.Path = a.flags.journalPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	color.Init(a.flags.noColor || a.flags.jsonOutput)

	// Validate has accepted both values.
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	a.logger = logging.New(level, format, a.errOut)
	logging.SetGlobal(a.logger)

	a.metrics = metrics.NewRegistry()

	if cfg.Lock.Enabled {
		dir := cfg.Lock.Dir
		if dir == "" {
			dir = lock.DefaultDir()
		}
		a.locks = lock.NewManager(afero.NewOsFs(), dir, cfg.Lock.TTL)
	}
	if cfg.Journal.Path != "" {
		a.journal = journal.NewAppender(cfg.Journal.Path)
	}
	return nil
}

// run wraps a command body so the metrics textfile is written however the
// command ends.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if path := a.cfg.Metrics.Textfile; path != "" {
			if werr := a.metrics.WriteTextfile(path); werr != nil {
				a.logger.ErrorErr("metrics export failed", werr, map[string]any{"path": path})
			}
		}
		return err
	}
}

// outputJSON prints v as indented JSON.
func (a *app) outputJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtErr(w io.Writer, format string, args ...any) {
	prefix := "treeclone: "
	if color.Enabled() {
		prefix = color.Error("treeclone:") + " "
	}
	fmt.Fprintf(w, prefix+format+"\n", args...)
}
