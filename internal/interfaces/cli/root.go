// Package cli implements the rinchi command line: local conversion of
// reaction files and RInChI strings, and the serve, worker and migrate
// commands that run the networked parts of the toolkit.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/IUPAC-InChI/RInChI/internal/app"
	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// DefaultBuildInfo reads the ldflags variables.
func DefaultBuildInfo() BuildInfo {
	return BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate}
}

// Output formats accepted by --output.
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputTable = "table"
)

type cliContextKey struct{}

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
}

// CLIContext carries what persistentPreRun built to the subcommands.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Service      rinchi.Service
	Build        BuildInfo
	OutputFormat string
}

// NewRootCommand builds the command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rinchi",
		Short: "Reaction InChI toolkit",
		Long: "rinchi computes RInChI identifiers, RAuxInfo and RInChIKeys from MDL RXN\n" +
			"and RD files, reconstructs reaction files from RInChIs, and runs the\n" +
			"RInChI API server and batch worker.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts, info)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: RINCHI_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, table)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newComputeCmd(),
		newKeyCmd(),
		newDecomposeCmd(),
		newFromInChIsCmd(),
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, info BuildInfo) error {
	switch opts.OutputFormat {
	case OutputText, OutputJSON, OutputTable:
	default:
		return fmt.Errorf("unknown output format %q", opts.OutputFormat)
	}
	color.NoColor = opts.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfig, "config initialization failed")
	}
	if opts.LogLevel != "" {
		if _, ok := logging.ParseLevel(opts.LogLevel); !ok {
			return fmt.Errorf("unknown log level %q", opts.LogLevel)
		}
		cfg.Log.Level = opts.LogLevel
	}

	logger, err := initLogger(cfg, cmd)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfig, "logger initialization failed")
	}

	engine, err := app.NewEngine(cfg.Engine, logger)
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Service:      app.NewService(cfg, engine, nil, logger),
		Build:        info,
		OutputFormat: opts.OutputFormat,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initLogger keeps file-conversion commands quiet on the console unless a
// level was asked for. Long-running commands log with the configured format.
func initLogger(cfg *config.Config, cmd *cobra.Command) (logging.Logger, error) {
	lc := cfg.Log
	if len(lc.OutputPaths) == 0 {
		lc.OutputPaths = []string{"stderr"}
	}
	if !isDaemon(cmd) {
		lc.Format = "console"
		if !cmd.Flags().Changed("log-level") {
			lc.Level = logging.LevelWarn
		}
	}
	return logging.NewLogger(lc)
}

func isDaemon(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "serve", "worker":
		return true
	}
	return false
}

// GetCLIContext returns the context stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not initialised")
	}
	return cliCtx, nil
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, info BuildInfo, args []string) int {
	cmd := NewRootCommand(info)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		PrintError(cmd, err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to the process status: 1 for usage mistakes
// (flags, arguments, configuration) and 2 for failures while reading or
// processing input.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *errors.AppError
	if !errors.As(err, &appErr) || appErr.Code == errors.ErrCodeConfig {
		return 1
	}
	return 2
}
