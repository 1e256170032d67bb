package executor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/harrison/codecbench/internal/aggregate"
	"github.com/harrison/codecbench/internal/models"
	"github.com/harrison/codecbench/internal/planner"
	"github.com/harrison/codecbench/internal/tasklog"
)

// TaskRunner encodes, decodes and measures one task. It is called
// concurrently with distinct worker IDs, which implementations may use to
// name temporary files.
type TaskRunner interface {
	RunTask(ctx context.Context, input models.TaskInput, workerID int, mode models.EncodeMode) (models.TaskOutput, error)
}

// Reporter receives the aggregated results of a run, one group per codec,
// subsampling and effort.
type Reporter interface {
	Report(groups [][]models.TaskOutput) error
}

// Logger defines the interface for logging comparison progress and results.
type Logger interface {
	LogRunStart(summary models.RunSummary)
	LogTaskFailure(input models.TaskInput, err error)
	LogProgress(progress models.Progress)
	LogSummary(summary models.RunSummary)
	LogInfo(message string)
}

type nopLogger struct{}

func (nopLogger) LogRunStart(models.RunSummary) {}
func (nopLogger) LogTaskFailure(models.TaskInput, error) {}
func (nopLogger) LogProgress(models.Progress) {}
func (nopLogger) LogSummary(models.RunSummary) {}
func (nopLogger) LogInfo(string) {}

// Comparator runs codec comparisons: it plans the tasks, skips those found in
// the completed-task log, executes the rest on a worker pool and reports the
// aggregated results.
type Comparator struct {
	runner           TaskRunner
	logger           Logger
	reporter         Reporter
	progressInterval time.Duration
	rng              *rand.Rand
}

// NewComparator creates a new Comparator instance.
// The logger and reporter parameters are optional and can be nil.
func NewComparator(runner TaskRunner, logger Logger, reporter Reporter) *Comparator {
	if runner == nil {
		panic("task runner cannot be nil")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Comparator{
		runner:           runner,
		logger:           logger,
		reporter:         reporter,
		progressInterval: DefaultProgressInterval,
	}
}

// SetProgressInterval sets the minimum delay between two progress lines.
func (c *Comparator) SetProgressInterval(d time.Duration) {
	c.progressInterval = d
}

// SetRand sets the source used to shuffle tasks in random order mode.
func (c *Comparator) SetRand(rng *rand.Rand) {
	c.rng = rng
}

func (c *Comparator) loggerFor(settings models.ComparisonSettings) Logger {
	if settings.Quiet {
		return nopLogger{}
	}
	return c.logger
}

// Preview plans the tasks and reconciles them with the completed-task log
// without running anything.
func (c *Comparator) Preview(imagePaths []string, settings models.ComparisonSettings, completedTasksPath string) (planned, remaining []models.TaskInput, err error) {
	planned, err = planner.PlanTasks(imagePaths, settings)
	if err != nil {
		return nil, nil, err
	}
	completed, err := tasklog.Load(completedTasksPath, settings.RecomputeDistortion)
	if err != nil {
		return nil, nil, err
	}
	remaining, err = Reconcile(completed, planned)
	if err != nil {
		return nil, nil, err
	}
	return planned, remaining, nil
}

// Compare executes every planned task missing from the completed-task log at
// completedTasksPath, appending each success to the log as soon as it ends.
// Completed and new results are then aggregated and handed to the reporter.
//
// Cancelling ctx stops the assignment of new tasks. Tasks in flight still
// finish and reach the log, and the returned error wraps ctx.Err().
func (c *Comparator) Compare(ctx context.Context, imagePaths []string, settings models.ComparisonSettings, completedTasksPath string) (*models.RunSummary, error) {
	if completedTasksPath == "" {
		return nil, fmt.Errorf("%w: no completed-task log path", models.ErrInvalidConfiguration)
	}
	logger := c.loggerFor(settings)

	planned, err := planner.PlanTasks(imagePaths, settings)
	if err != nil {
		return nil, err
	}

	summary := &models.RunSummary{
		Planned: len(planned),
		Threads: settings.NumWorkers(),
	}

	var completed []models.TaskOutput
	if settings.RecomputeDistortion {
		completed, err = c.recomputeDistortions(ctx, settings, completedTasksPath)
		if err != nil {
			return nil, err
		}
		summary.RecomputedLog = len(completed) > 0
	}

	log, err := tasklog.Open(completedTasksPath)
	if err != nil {
		return nil, err
	}
	defer log.Close()

	if !settings.RecomputeDistortion {
		completed, err = tasklog.Load(completedTasksPath, false)
		if err != nil {
			return nil, err
		}
	}
	summary.Loaded = len(completed)
	if len(completed) > 0 {
		logger.LogInfo(fmt.Sprintf("Loaded %d tasks from %s", len(completed), completedTasksPath))
	}

	remaining, err := Reconcile(completed, planned)
	if err != nil {
		return nil, err
	}
	c.orderTasks(remaining, settings.RandomOrder)

	rc := newRunContext(ctx, c.runner, logger, remaining, len(completed))
	rc.log = log
	rc.progressInterval = c.progressInterval

	logger.LogRunStart(*summary)
	NewPool[runContext, *taskWorker](rc).Run(newTaskWorkers(settings.NumWorkers()))
	summary.Duration = time.Since(rc.start)
	summary.Executed = len(rc.outputs)
	summary.Failed = rc.failures

	if err := log.Close(); err != nil {
		return summary, err
	}
	if rc.failed() {
		return summary, &RunError{
			Failures:   rc.failures,
			Successes:  len(rc.outputs),
			FirstError: rc.firstError,
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("comparison interrupted: %w", err)
	}

	all := append(completed, rc.outputs...)
	groups, err := aggregate.SplitByCodecSettings(all)
	if err != nil {
		return summary, err
	}
	if c.reporter != nil {
		if err := c.reporter.Report(groups); err != nil {
			return summary, fmt.Errorf("failed to report results: %w", err)
		}
	}

	for _, o := range all {
		summary.TaskDuration += o.EncodingDuration + o.DecodingDuration
		summary.EncodedBytes += o.EncodedSize
	}
	summary.Results = len(all)
	summary.Groups = len(groups)
	logger.LogSummary(*summary)
	return summary, nil
}

// orderTasks arranges tasks for workers, which take them from the back.
func (c *Comparator) orderTasks(tasks []models.TaskInput, random bool) {
	if !random {
		// Execute in the order given on the command line.
		slices.Reverse(tasks)
		return
	}
	swap := func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] }
	if c.rng != nil {
		c.rng.Shuffle(len(tasks), swap)
	} else {
		rand.Shuffle(len(tasks), swap)
	}
}
