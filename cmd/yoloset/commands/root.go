// Package commands implements the yoloset command tree.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"yoloset/internal/config"
	"yoloset/internal/dataset"
	"yoloset/internal/logging"
	"yoloset/internal/orchestrator"
	"yoloset/internal/output"
	"yoloset/internal/prompt"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	dataset    string
	verbose    bool
	json       bool

	cfg      *config.Configuration
	out      *output.Output
	logClose io.Closer

	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	interactive func() bool
}

// Execute runs the command tree against the process streams.
func Execute() error {
	return NewRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute()
}

// NewRootCmd builds the command tree. Streams are injectable for tests.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return newRootCmd(&app{
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		interactive: prompt.IsInteractive,
	})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yoloset",
		Short: "Analyze and rebalance YOLO datasets across train/val/test splits",
		Long: `yoloset categorizes every image of a YOLO dataset (CT only, T only, multiple
players, background, hard case), reports how far each split is from its
target ratios and moves image/label pairs between splits to close the gap.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logClose != nil {
				a.logClose.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (default ./"+config.DefaultConfigFile+" if present)")
	flags.StringVarP(&a.dataset, "dataset", "d", "", "dataset root, overrides the configuration and "+config.EnvDataset)
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	flags.BoolVar(&a.json, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newStatusCmd(a),
		newIntegrityCmd(a),
		newPlanCmd(a),
		newGlobalCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

// setup loads configuration and initializes logging and output.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if a.dataset != "" {
		cfg.DatasetRoot = a.dataset
	}
	if a.verbose {
		cfg.Logging.Verbose = true
	}
	a.cfg = cfg

	closer, err := logging.Init(logging.Options{
		Verbose:   cfg.Logging.Verbose,
		Directory: cfg.Logging.Directory,
		Console:   a.stderr,
	})
	if err != nil {
		return err
	}
	a.logClose = closer

	outCfg := output.DefaultConfig()
	outCfg.Writer = a.stdout
	outCfg.ErrWriter = a.stderr
	outCfg.Verbose = cfg.Logging.Verbose
	outCfg.JSON = a.json
	if _, ok := a.stdout.(*os.File); !ok {
		outCfg.IsTTY = false
	}
	a.out = output.New(outCfg)

	log.Debug().
		Str("version", Version).
		Str("commit", Commit).
		Str("dataset", cfg.DatasetRoot).
		Str("command", cmd.Name()).
		Msg("yoloset starting")
	return nil
}

// loadConfig reads --config, or ./yoloset.json when present, or defaults.
func (a *app) loadConfig() (*config.Configuration, error) {
	if a.configPath != "" {
		return config.Load(a.configPath)
	}
	return config.LoadOrDefault(config.DefaultConfigFile)
}

// requireValid fails on configuration errors and logs warnings.
func (a *app) requireValid() error {
	result := config.ValidateConfig(a.cfg)
	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if result.Valid {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return errors.New("invalid configuration:\n  " + strings.Join(msgs, "\n  "))
}

// engine validates the configuration and builds the engine.
func (a *app) engine() (*orchestrator.Orchestrator, error) {
	if err := a.requireValid(); err != nil {
		return nil, err
	}
	return orchestrator.New(a.cfg), nil
}

// splitsFromArgs parses positional split names, falling back to the
// configured selection.
func (a *app) splitsFromArgs(args []string) ([]dataset.Split, error) {
	if len(args) == 0 {
		return a.cfg.Splits()
	}
	return dataset.ParseSplits(args)
}

// progress returns a callback that draws a progress line labelled label,
// starting it on the first update.
func (a *app) progress(label string) (update func(current, total int), end func()) {
	started := false
	update = func(current, total int) {
		if !started {
			a.out.StartProgress(label, total)
			started = true
		}
		a.out.UpdateProgress(current)
	}
	end = func() {
		if started {
			a.out.EndProgress()
		}
	}
	return update, end
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.json {
				return a.out.JSON(map[string]string{"version": Version, "commit": Commit, "buildDate": BuildDate})
			}
			fmt.Fprintf(a.stdout, "yoloset %s (commit %s, built %s)\n", Version, Commit, BuildDate)
			return nil
		},
	}
}
