// Package cli holds the flag handling shared by the stage commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wikiedits/internal/config"
	"wikiedits/internal/logger"
	"wikiedits/internal/models"
	"wikiedits/internal/pipeline"
)

// Flags are the options every stage command accepts.
type Flags struct {
	ConfigPath   string
	Domain       string
	MainCategory string
	LogLevel     string
	ReportPath   string
	YearsBack    int
}

// Register adds the flags to cmd. --years_back is only added for commands
// that crawl.
func (f *Flags) Register(cmd *cobra.Command, withYearsBack bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.ConfigPath, "config", "", "Path to YAML configuration file (defaults apply when empty)")
	fs.StringVar(&f.Domain, "domain", "", "Document domain: wikipedia or wikinews")
	fs.StringVar(&f.MainCategory, "main_category", "", "Main category to process (see the domain's categories in the config)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level override: debug, info, warn or error")
	fs.StringVar(&f.ReportPath, "report", "", "Write a markdown run report to this path")

	if withYearsBack {
		fs.IntVar(&f.YearsBack, "years_back", 0, "Crawl revisions from the last N years (overrides config)")
	}

	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("main_category")
}

// Setup loads the configuration, applies flag overrides and prepares a run.
func (f *Flags) Setup(opts ...pipeline.Option) (*pipeline.Runner, *logger.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	if f.YearsBack != 0 {
		cfg.Crawler.YearsBack = f.YearsBack
	}

	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid flags: %w", err)
	}

	domain, err := models.ParseDomain(f.Domain)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.NewString()

	runner, err := pipeline.New(cfg, domain, f.MainCategory, runID, log, opts...)
	if err != nil {
		return nil, log, fmt.Errorf("%w (available: %v)", err, cfg.MainCategories(domain))
	}

	return runner, log, nil
}

// StageFunc runs one or more stages of a prepared run.
type StageFunc func(ctx context.Context, r *pipeline.Runner) error

// NewCommand builds a stage command. stage names the metrics file written
// on completion.
func NewCommand(use, short, stage string, withYearsBack bool, run StageFunc) *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, log, err := flags.Setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			runErr := run(cmd.Context(), runner)

			if err := runner.Close(stage, flags.ReportPath); err != nil {
				log.Error("failed to finish run", "error", err)

				if runErr == nil {
					runErr = err
				}
			}

			return runErr
		},
	}

	flags.Register(cmd, withYearsBack)

	return cmd
}

// Execute runs cmd with a context cancelled on SIGINT or SIGTERM and exits
// non-zero on error.
func Execute(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s: %v\n", cmd.Name(), err)
		stop()
		os.Exit(1)
	}
}
