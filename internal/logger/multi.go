package logger

import "github.com/harrison/codecbench/internal/models"

// Logger is the set of events a comparison reports. It matches
// executor.Logger.
type Logger interface {
	LogRunStart(summary models.RunSummary)
	LogTaskFailure(input models.TaskInput, err error)
	LogProgress(progress models.Progress)
	LogSummary(summary models.RunSummary)
	LogInfo(message string)
}

// MultiLogger delegates every event to several loggers, in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (ml *MultiLogger) LogRunStart(summary models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogRunStart(summary)
	}
}

func (ml *MultiLogger) LogTaskFailure(input models.TaskInput, err error) {
	for _, l := range ml.loggers {
		l.LogTaskFailure(input, err)
	}
}

func (ml *MultiLogger) LogProgress(progress models.Progress) {
	for _, l := range ml.loggers {
		l.LogProgress(progress)
	}
}

func (ml *MultiLogger) LogSummary(summary models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogSummary(summary)
	}
}

func (ml *MultiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}
