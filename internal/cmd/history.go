package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harrison/codecbench/internal/config"
	"github.com/harrison/codecbench/internal/models"
	"github.com/harrison/codecbench/internal/report"
)

// NewHistoryCommand creates the history command listing runs stored in the
// results database.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List comparison runs recorded in the results database",
		Args:  cobra.NoArgs,
		RunE:  historyCommand,
	}
	cmd.Flags().String("config", "", "Path to config file (default: .codecbench/config.yaml)")
	cmd.Flags().String("results-db", "", "SQLite database collecting every run")
	cmd.Flags().String("run", "", `Show the mean encoded size per batch and quality of one run ("latest" for the most recent)`)
	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("results-db") {
		db, _ := cmd.Flags().GetString("results-db")
		cfg.MergeWithFlags(config.Overrides{ResultsDB: &db})
	}
	if cfg.ResultsDB == "" {
		return fmt.Errorf("no results database configured (use --results-db or results_db)")
	}

	store, err := report.NewSQLiteStore(cfg.ResultsDB)
	if err != nil {
		return fmt.Errorf("failed to open results database: %w", err)
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No run recorded.")
		return nil
	}

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		if runID == "latest" {
			runID = runs[0].ID
		}
		return printRunGroups(cmd.Context(), out, store, runID)
	}

	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %d results in %d groups\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ID, r.Results, r.Groups)
	}
	return nil
}

func printRunGroups(ctx context.Context, out io.Writer, store *report.SQLiteStore, runID string) error {
	keys, err := store.Groups(ctx, runID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no result recorded for run %q", runID)
	}

	fmt.Fprintf(out, "Run %s\n", runID)
	fmt.Fprintf(out, "%-24s %-9s %s\n", "BATCH", "QUALITY", "MEAN SIZE")
	for _, k := range keys {
		mean, err := store.MeanEncodedSize(ctx, runID, k.Batch, k.Quality)
		if err != nil {
			return err
		}
		quality := strconv.Itoa(k.Quality)
		if k.Quality == models.QualityLossless {
			quality = "lossless"
		}
		fmt.Fprintf(out, "%-24s %-9s %.0f B\n", k.Batch, quality, mean)
	}
	return nil
}
