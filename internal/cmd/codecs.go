package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/codecbench/internal/models"
)

// NewCodecsCommand creates the codecs command listing supported codecs.
func NewCodecsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "List supported codecs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listCodecs(cmd.OutOrStdout())
			return nil
		},
	}
}

func listCodecs(w io.Writer) {
	fmt.Fprintf(w, "%-12s %-10s %-10s %s\n", "CODEC", "EXTENSION", "QUALITY", "BROWSERS")
	for _, c := range models.Codecs {
		quality := "lossless"
		if lo, hi, ok := c.QualityRange(); ok {
			quality = fmt.Sprintf("%d-%d", lo, hi)
		}
		browsers := "no"
		if c.SupportedByBrowsers() {
			browsers = "yes"
		}
		fmt.Fprintf(w, "%-12s %-10s %-10s %s\n", c, c.Extension(), quality, browsers)
	}
}
