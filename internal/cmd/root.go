package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for codecbench
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codecbench",
		Short: "Batch comparison of image codecs",
		Long: `Codecbench encodes a set of images with several codecs and settings,
decodes them back and measures size, timing and distortion.

Completed tasks are appended to a log as soon as they end, so an interrupted
comparison resumes where it stopped. Results are aggregated per codec,
subsampling and effort and written as JSON files and a summary.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewCompareCommand())
	cmd.AddCommand(NewCodecsCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
