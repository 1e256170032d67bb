package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/codecbench/internal/codec"
	"github.com/harrison/codecbench/internal/config"
	"github.com/harrison/codecbench/internal/executor"
	"github.com/harrison/codecbench/internal/logger"
	"github.com/harrison/codecbench/internal/models"
	"github.com/harrison/codecbench/internal/report"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [image-or-folder]...",
		Short: "Run a codec comparison",
		Long: `Encode every image with every configured codec setting, decode it back and
measure the result.

Images are given as arguments or with "images" in the config file. Codecs,
efforts, qualities and the encoder, decoder and metric commands come from
the config file. CLI flags override configuration file settings.

Tasks found in the completed-task log are not run again. Interrupting a
comparison with Ctrl-C lets running tasks finish and reach the log.

Examples:
  # Run the comparison described in .codecbench/config.yaml
  codecbench compare

  # Use a custom config file and 8 threads
  codecbench compare --config webp.yaml --threads 8 images/

  # Show what would run without running it
  codecbench compare --dry-run

  # Recompute distortions of saved encodings listed in the log
  codecbench compare --recompute-distortion --encoded-folder encoded/`,
		RunE: compareCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .codecbench/config.yaml)")
	cmd.Flags().String("completed-tasks", "", "Completed-task log used to resume comparisons")
	cmd.Flags().String("results-folder", "", "Folder receiving the JSON results and summary")
	cmd.Flags().String("encoded-folder", "", "Folder keeping encoded images (default: not kept)")
	cmd.Flags().String("metric-binary-folder", "", "Folder containing the metric binaries")
	cmd.Flags().Int("threads", 0, "Number of worker threads, the main one included")
	cmd.Flags().Int("repetitions", 0, "Extra runs of every task, to average timings")
	cmd.Flags().Bool("random-order", false, "Run tasks in random order")
	cmd.Flags().Bool("recompute-distortion", false, "Recompute distortions of the completed-task log from saved encodings")
	cmd.Flags().Bool("quiet", false, "Do not print progress nor summary")
	cmd.Flags().Bool("verbose", false, "Show debug messages")
	cmd.Flags().String("log-dir", "", "Directory for run logs")
	cmd.Flags().String("results-db", "", "SQLite database collecting every run")
	cmd.Flags().Bool("dry-run", false, "Only show how many tasks would run")

	return cmd
}

// loadConfig loads --config, or the default config file when not given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// flagOverrides collects the flags set on the command line.
func flagOverrides(cmd *cobra.Command, args []string) (config.Overrides, error) {
	flags := cmd.Flags()
	o := config.Overrides{Images: args}

	stringFlag := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	boolFlag := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}

	o.CompletedTasksFile = stringFlag("completed-tasks")
	o.ResultsFolder = stringFlag("results-folder")
	o.EncodedFolder = stringFlag("encoded-folder")
	o.MetricBinaryFolder = stringFlag("metric-binary-folder")
	o.LogDir = stringFlag("log-dir")
	o.ResultsDB = stringFlag("results-db")
	o.RandomOrder = boolFlag("random-order")
	o.RecomputeDistortion = boolFlag("recompute-distortion")
	o.Quiet = boolFlag("quiet")

	if flags.Changed("threads") {
		threads, _ := flags.GetInt("threads")
		if threads < 1 {
			return o, fmt.Errorf("--threads must be >= 1, got %d", threads)
		}
		extra := threads - 1
		o.ExtraThreads = &extra
	}
	if flags.Changed("repetitions") {
		repetitions, _ := flags.GetInt("repetitions")
		o.Repetitions = &repetitions
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level := "debug"
		o.LogLevel = &level
	}
	return o, nil
}

// compareCommand implements the compare command logic
func compareCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrides, err := flagOverrides(cmd, args)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	settings, err := cfg.ComparisonSettings()
	if err != nil {
		return err
	}
	images, err := cfg.ImagePaths()
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("%w: no image to compare", models.ErrInvalidConfiguration)
	}

	codecCfg, err := cfg.CodecConfig()
	if err != nil {
		return err
	}
	runner, err := codec.NewCommandRunner(codecCfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	out := cmd.OutOrStdout()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		comparator := executor.NewComparator(runner, nil, nil)
		planned, remaining, err := comparator.Preview(images, settings, cfg.CompletedTasksFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Dry-run mode: %d images, %d codec settings\n", len(images), len(settings.CodecSettings))
		fmt.Fprintf(out, "  Planned tasks: %d\n", len(planned))
		fmt.Fprintf(out, "  Already completed: %d\n", len(planned)-len(remaining))
		fmt.Fprintf(out, "  To run: %d\n", len(remaining))
		return nil
	}

	consoleLog := logger.NewConsoleLogger(out, cfg.LogLevel)
	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	reporters := []report.Reporter{
		report.NewJSONWriter(cfg.ResultsFolder),
		report.NewSummaryWriter(cfg.ResultsFolder),
	}
	if cfg.ResultsDB != "" {
		store, err := report.NewSQLiteStore(cfg.ResultsDB)
		if err != nil {
			return fmt.Errorf("failed to open results database: %w", err)
		}
		defer store.Close()
		reporters = append(reporters, store)
	}

	comparator := executor.NewComparator(runner, logger.NewMultiLogger(consoleLog, fileLog), report.NewMultiReporter(reporters...))
	comparator.SetProgressInterval(cfg.ProgressInterval)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := comparator.Compare(ctx, images, settings, cfg.CompletedTasksFile)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Comparison interrupted, rerun to resume from %s\n", cfg.CompletedTasksFile)
		}
		return fmt.Errorf("comparison failed: %w", err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "\nComparison completed: %d results written to %s\n", summary.Results, cfg.ResultsFolder)
		fmt.Fprintf(out, "Logs written to: %s\n", fileLog.Path())
	}
	return nil
}
