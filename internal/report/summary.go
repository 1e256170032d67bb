package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/codecbench/internal/aggregate"
	"github.com/harrison/codecbench/internal/filelock"
	"github.com/harrison/codecbench/internal/models"
)

// Summary file names within the results folder.
const (
	SummaryMarkdownFile = "summary.md"
	SummaryHTMLFile     = "summary.html"
)

// SummaryWriter writes one table row per group as Markdown, plus the same
// document rendered to HTML.
type SummaryWriter struct {
	folder   string
	markdown goldmark.Markdown
}

// NewSummaryWriter creates a writer storing both files in folder.
func NewSummaryWriter(folder string) *SummaryWriter {
	return &SummaryWriter{
		folder:   folder,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Report implements executor.Reporter.
func (w *SummaryWriter) Report(groups [][]models.TaskOutput) error {
	md := RenderMarkdown(groups)

	var html bytes.Buffer
	if err := w.markdown.Convert([]byte(md), &html); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{SummaryMarkdownFile, []byte(md)},
		{SummaryHTMLFile, html.Bytes()},
	}
	for _, f := range files {
		path := filepath.Join(w.folder, f.name)
		if err := filelock.AtomicWrite(path, f.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// RenderMarkdown returns the summary table of groups.
func RenderMarkdown(groups [][]models.TaskOutput) string {
	var sb strings.Builder
	sb.WriteString("# Codec comparison\n\n")
	if len(groups) == 0 {
		sb.WriteString("No results.\n")
		return sb.String()
	}

	sb.WriteString("| Codec | Images | Bits per pixel | Encoded size (geomean) | Encoding | Decoding |")
	for m := 0; m < models.NumDistortionMetrics; m++ {
		sb.WriteString(" " + models.DistortionMetric(m).String() + " |")
	}
	sb.WriteString("\n|---|---:|---:|---:|---:|---:|")
	sb.WriteString(strings.Repeat("---:|", models.NumDistortionMetrics))
	sb.WriteString("\n")

	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		s := aggregate.Summarize(group)
		lossless := true
		for _, o := range group {
			lossless = lossless && o.Input.Settings.Lossless()
		}
		cs := s.Settings
		fmt.Fprintf(&sb, "| %s | %d | %.3f | %.0f B | %s | %s |",
			cs.Codec.PrettyName(lossless, cs.Subsampling, cs.Effort),
			s.Results,
			s.MeanBitsPerPixel,
			s.GeoMeanEncodedSize,
			s.MeanEncodingDuration.Round(10*time.Microsecond),
			s.MeanDecodingDuration.Round(10*time.Microsecond),
		)
		for _, d := range s.MeanDistortions {
			fmt.Fprintf(&sb, " %.3f |", d)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
