package executor

import (
	"context"
	"time"

	"github.com/harrison/codecbench/internal/models"
	"github.com/harrison/codecbench/internal/tasklog"
)

// DefaultProgressInterval is the minimum delay between two progress lines.
const DefaultProgressInterval = 30 * time.Second

// runContext is the state shared by the task workers of one pool run. It is
// only accessed with the pool lock held.
type runContext struct {
	ctx      context.Context
	runner   TaskRunner
	logger   Logger
	log      *tasklog.Writer // nil when results are only collected
	loadOnly bool            // reuse encoded files, see models.LoadFromDisk

	remaining []models.TaskInput // assigned from the back
	saved     map[string]bool    // encoded paths already assigned for saving

	loaded     int // completed before the run started
	numTasks   int // loaded + remaining, minus failures
	inFlight   int
	outputs    []models.TaskOutput
	failures   int
	firstError *TaskError

	start            time.Time
	lastProgress     time.Time
	progressInterval time.Duration
}

func newRunContext(ctx context.Context, runner TaskRunner, logger Logger, remaining []models.TaskInput, loaded int) *runContext {
	now := time.Now()
	return &runContext{
		ctx:              ctx,
		runner:           runner,
		logger:           logger,
		remaining:        remaining,
		saved:            make(map[string]bool),
		loaded:           loaded,
		numTasks:         loaded + len(remaining),
		start:            now,
		lastProgress:     now,
		progressInterval: DefaultProgressInterval,
	}
}

// failed reports whether the run as a whole failed.
func (rc *runContext) failed() bool {
	return rc.failures > models.MaxFailures || (rc.failures > 0 && len(rc.outputs) == 0)
}

func (rc *runContext) recordFailure(err *TaskError) {
	if rc.firstError == nil {
		rc.firstError = err
	}
	rc.numTasks--
	rc.failures++
	rc.logger.LogTaskFailure(err.Input, err.Err)
	if rc.failures > models.MaxFailures {
		// Stop assigning. Tasks already in flight still end normally.
		rc.remaining = nil
	}
}

func (rc *runContext) maybeLogProgress() {
	now := time.Now()
	if now.Sub(rc.lastProgress) < rc.progressInterval {
		return
	}
	rc.lastProgress = now

	elapsed := now.Sub(rc.start)
	// Tasks of other workers are assumed to be half done on average.
	doneSinceStart := float64(len(rc.outputs)) + float64(rc.inFlight)*0.5
	left := float64(len(rc.remaining)) + float64(rc.inFlight)*0.5
	var eta time.Duration
	if doneSinceStart > 0 {
		eta = time.Duration(float64(elapsed) / doneSinceStart * left)
	}
	rc.logger.LogProgress(models.Progress{
		Done:      rc.loaded + len(rc.outputs),
		InFlight:  rc.inFlight,
		Total:     rc.numTasks,
		Elapsed:   elapsed,
		Remaining: eta,
	})
}

// taskWorker executes one task at a time on behalf of a Pool.
type taskWorker struct {
	id int

	// Copied from the run context by AssignTask.
	ctx    context.Context
	runner TaskRunner
	input  models.TaskInput
	mode   models.EncodeMode

	output models.TaskOutput
	line   string
	err    error
}

func newTaskWorkers(n int) []*taskWorker {
	workers := make([]*taskWorker, n)
	for i := range workers {
		workers[i] = &taskWorker{id: i}
	}
	return workers
}

func (w *taskWorker) AssignTask(rc *runContext) bool {
	if len(rc.remaining) == 0 || rc.ctx.Err() != nil {
		return false
	}
	last := len(rc.remaining) - 1
	w.input = rc.remaining[last]
	rc.remaining = rc.remaining[:last]

	switch {
	case rc.loadOnly:
		w.mode = models.LoadFromDisk
	case w.input.EncodedPath != "" && !rc.saved[w.input.EncodedPath]:
		// Repetitions share the encoded path, only one needs to save it.
		rc.saved[w.input.EncodedPath] = true
		w.mode = models.EncodeAndSave
	default:
		w.mode = models.EncodeOnly
	}

	w.ctx = rc.ctx
	w.runner = rc.runner
	w.output = models.TaskOutput{}
	w.line = ""
	w.err = nil
	rc.inFlight++
	return true
}

func (w *taskWorker) DoTask() {
	w.output, w.err = w.runner.RunTask(w.ctx, w.input, w.id, w.mode)
	if w.err != nil {
		return
	}
	w.output.Input = w.input
	w.line = tasklog.Format(w.output)
}

func (w *taskWorker) EndTask(rc *runContext) {
	rc.inFlight--

	err := w.err
	if err == nil && rc.log != nil {
		err = rc.log.WriteLine(w.line)
	}
	if err != nil {
		rc.recordFailure(NewTaskError(w.input, err))
	} else {
		rc.outputs = append(rc.outputs, w.output)
	}
	rc.maybeLogProgress()
}
