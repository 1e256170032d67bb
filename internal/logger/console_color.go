package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for different metric types.
// Green: success metrics
// Red: failure metrics
// Yellow: warnings
// Cyan: labels
// A nil scheme formats plain text.
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	bold    *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (s *colorScheme) sprint(c func(*colorScheme) *color.Color, text string) string {
	if s == nil {
		return text
	}
	return c(s).Sprint(text)
}

func (s *colorScheme) successText(text string) string {
	return s.sprint(func(s *colorScheme) *color.Color { return s.success }, text)
}

func (s *colorScheme) failText(text string) string {
	return s.sprint(func(s *colorScheme) *color.Color { return s.fail }, text)
}

func (s *colorScheme) warnText(text string) string {
	return s.sprint(func(s *colorScheme) *color.Color { return s.warn }, text)
}

func (s *colorScheme) boldText(text string) string {
	return s.sprint(func(s *colorScheme) *color.Color { return s.bold }, text)
}

// formatMetric formats a single metric with a colorized label.
// Format: "label: value"
func formatMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %v", scheme.sprint(func(s *colorScheme) *color.Color { return s.label }, label), value)
}
