package logger

import (
	"fmt"
	"time"

	"github.com/harrison/codecbench/internal/models"
)

// runStartMessage describes the work about to start.
func runStartMessage(s models.RunSummary) string {
	toRun := s.Planned - s.Loaded
	if s.RecomputedLog {
		return fmt.Sprintf("Starting comparison: %d tasks planned, %d recomputed, %d to run on %d threads",
			s.Planned, s.Loaded, toRun, s.Threads)
	}
	return fmt.Sprintf("Starting comparison: %d tasks planned, %d already done, %d to run on %d threads",
		s.Planned, s.Loaded, toRun, s.Threads)
}

// failureMessage describes one failed task.
func failureMessage(input models.TaskInput, err error) string {
	return fmt.Sprintf("Task %s (%s) failed: %v", input.ImagePath, input.Settings, err)
}

// progressMessage renders "Progress: [===   ] 3/10 (30%), 1 running - ETA: 2m".
func progressMessage(p models.Progress, enableColor bool) string {
	pb := NewProgressBar(p.Total, 20, enableColor)
	pb.Update(p.Done)
	msg := fmt.Sprintf("Progress: %s", pb.Render())
	if p.InFlight > 0 {
		msg += fmt.Sprintf(", %d running", p.InFlight)
	}
	msg += fmt.Sprintf(" - Elapsed: %s", formatDuration(p.Elapsed))
	if p.Remaining > 0 {
		msg += fmt.Sprintf(" - ETA: %s", formatDuration(p.Remaining))
	}
	return msg
}

// summaryLines lists the end-of-run statistics, one line each.
func summaryLines(s models.RunSummary, scheme *colorScheme) []string {
	lines := []string{
		scheme.boldText("=== Comparison Summary ==="),
		formatMetric("Planned tasks", s.Planned, scheme),
		formatMetric("Loaded from log", s.Loaded, scheme),
		scheme.successText(fmt.Sprintf("Executed: %d", s.Executed)),
	}
	if s.Failed > 0 {
		lines = append(lines, scheme.failText(fmt.Sprintf("Failed: %d", s.Failed)))
	} else {
		lines = append(lines, fmt.Sprintf("Failed: %d", s.Failed))
	}

	threads := max(s.Threads, 1)
	lines = append(lines,
		formatMetric("Duration", formatDuration(s.Duration), scheme),
		formatMetric("Encode+decode time", fmt.Sprintf("%s (%s per thread)",
			formatDuration(s.TaskDuration), formatDuration(s.TaskDuration/time.Duration(threads))), scheme),
		formatMetric("Results", fmt.Sprintf("%d in %d groups", s.Results, s.Groups), scheme),
		formatMetric("Encoded size", fmt.Sprintf("%d bytes (%.0f bytes on average)", s.EncodedBytes, s.AverageEncodedBytes()), scheme),
	)
	if s.RecomputedLog {
		lines = append(lines, "Distortions were recomputed from saved encodings")
	}
	if s.Failed > 0 {
		lines = append(lines, scheme.warnText(fmt.Sprintf("Warning: %d tasks failed and are missing from the results", s.Failed)))
	}
	return lines
}
