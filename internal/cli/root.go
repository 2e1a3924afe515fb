package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/segment"
	"github.com/wgomg/storyteller/internal/utils"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// app holds what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	ctx    context.Context
}

type rootOptions struct {
	configFile string
	logLevel   string
	backend    string
}

// NewRootCmd builds the command tree. Each call returns a fresh tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:     "storyteller",
		Version: Version,
		Short:   "Score the readability of children's stories",
		Long: `storyteller grades text with the Flesch-Kincaid formula and checks it
against a target window of school grades, for stories set in the Hundred
Acre Wood.

Text is read from --text, from a file argument, or from stdin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, opts)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("storyteller %s (commit %s, built %s)\n", Version, Commit, Date))

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file (overrides STORYTELLER_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info or error")
	root.PersistentFlags().StringVar(&opts.backend, "segmenter", "", "segmentation model: rule or spacy")

	root.AddCommand(
		newScoreCmd(a),
		newMeasureCmd(a),
		newSegmentCmd(a),
		newStoryCmd(a),
		newVersionCmd(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFrom(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return NewCLIError("failed to load configuration", "check STORYTELLER_CONFIG_FILE and the .env file", err)
	}

	if opts.logLevel != "" {
		cfg.App.LogLevel = opts.logLevel
	}
	if opts.backend != "" {
		cfg.Segmenter.Backend = opts.backend
	}
	if err := cfg.Validate(); err != nil {
		return NewCLIError("invalid configuration", "", err)
	}

	a.cfg = cfg
	a.logger = utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.App.LogLevel)

	runID := uuid.NewString()
	a.ctx = utils.WithRequestID(cmd.Context(), runID)
	a.logger.Debug(&runID, "Running %s (segmenter=%s, syllables=%s)", cmd.Name(), cfg.Segmenter.Backend, cfg.Readability.SyllableMode)

	if cmd.Name() == "version" || (cmd.Name() == "story" && !storyNeedsScoring(cmd)) {
		return nil
	}

	if err := segment.Init(a.logger, &cfg.Segmenter); err != nil {
		return NewCLIError("failed to load the segmentation model", "use --segmenter rule to run without Python", err)
	}
	return nil
}

// Execute runs the command line and returns the process exit code. The
// segmentation model is shut down whatever the outcome.
func Execute() int {
	root := NewRootCmd()
	defer segment.Shutdown()

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), FormatError(err))
		return ExitCode(err)
	}
	return 0
}
