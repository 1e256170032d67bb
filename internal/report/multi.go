package report

import (
	"errors"

	"github.com/harrison/codecbench/internal/models"
)

// Reporter mirrors executor.Reporter so this package does not depend on the
// executor.
type Reporter interface {
	Report(groups [][]models.TaskOutput) error
}

// MultiReporter forwards results to every reporter and joins their errors.
type MultiReporter struct {
	reporters []Reporter
}

// NewMultiReporter creates a MultiReporter. Nil reporters are skipped.
func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	m := &MultiReporter{}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

// Report implements executor.Reporter.
func (m *MultiReporter) Report(groups [][]models.TaskOutput) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(groups); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
