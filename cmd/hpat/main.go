package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agi-now/hpat/internal/config"
	"github.com/agi-now/hpat/internal/logging"
)

// #region app
// app carries the state shared by every subcommand once the root
// PersistentPreRunE has run.
type app struct {
	configPath string
	logLevel   string
	dbPath     string

	cfg *config.Config
	log *zap.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		a.cfg.Log.Level = a.logLevel
	}
	if flags.Changed("db") {
		a.cfg.Store.Path = a.dbPath
	}
	if err := a.cfg.Validate(); err != nil {
		return errors.Wrap(err, "flags")
	}

	a.log, err = logging.New(a.cfg.Logging())
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

// #endregion app

// #region root
func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "hpat",
		Short: "hpat - hierarchical pattern extraction over character and token sequences",
		Long: `hpat applies a grammar of rules to an input until no rule adds a new
match, then reports the matched spans and captured values.

Available commands:
  extract   - Run a grammar over one or more inputs
  inspect   - Show persisted extraction runs
  replay    - Check fixture files against their recorded expectations
  hierarchy - Load or serve the concept hierarchy

Examples:
  hpat extract -g grammar.yaml "hello bob"
  hpat extract -g grammar.yaml --tokens --save "hi ann"
  hpat inspect --last 10
  hpat replay testdata/*.yaml
  hpat hierarchy serve --addr :7070 -f hierarchy.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default: HPAT_* environment only)")
	pf.StringVar(&a.logLevel, "log-level", config.DefaultLogLevel, "debug | info | warn | error")
	pf.StringVar(&a.dbPath, "db", config.DefaultStorePath, "run database path")

	root.AddCommand(
		newExtractCmd(a),
		newInspectCmd(a),
		newReplayCmd(a),
		newHierarchyCmd(a),
	)
	return root
}

// #endregion root

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
