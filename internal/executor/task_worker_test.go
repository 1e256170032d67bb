package executor

import (
	"context"
	"testing"
	"time"

	"github.com/harrison/codecbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskWorkerAssignsFromTheBack(t *testing.T) {
	saved := task(50, "a.png")
	saved.EncodedPath = "enc/a.webp"
	rc := newRunContext(context.Background(), &fakeRunner{}, &recordingLogger{},
		[]models.TaskInput{task(10, "a.png"), saved, saved}, 0)

	w := newTaskWorkers(1)[0]

	require.True(t, w.AssignTask(rc))
	assert.Equal(t, saved, w.input)
	assert.Equal(t, models.EncodeAndSave, w.mode)
	assert.Equal(t, 1, rc.inFlight)

	// A repetition of the same task must not save the file again.
	require.True(t, w.AssignTask(rc))
	assert.Equal(t, models.EncodeOnly, w.mode)

	require.True(t, w.AssignTask(rc))
	assert.Equal(t, task(10, "a.png"), w.input)
	assert.Equal(t, models.EncodeOnly, w.mode)

	assert.False(t, w.AssignTask(rc))
	assert.Equal(t, 3, rc.inFlight)
}

func TestTaskWorkerLoadOnly(t *testing.T) {
	in := task(50, "a.png")
	in.EncodedPath = "enc/a.webp"
	rc := newRunContext(context.Background(), &fakeRunner{}, &recordingLogger{}, []models.TaskInput{in}, 0)
	rc.loadOnly = true

	w := newTaskWorkers(1)[0]
	require.True(t, w.AssignTask(rc))
	assert.Equal(t, models.LoadFromDisk, w.mode)
}

func TestTaskWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := newRunContext(ctx, &fakeRunner{}, &recordingLogger{}, []models.TaskInput{task(10, "a.png")}, 0)
	cancel()

	assert.False(t, newTaskWorkers(1)[0].AssignTask(rc))
	assert.Len(t, rc.remaining, 1)
}

func TestTaskWorkerEndTask(t *testing.T) {
	runner := &fakeRunner{fail: func(in models.TaskInput, n int) error {
		if n == 1 {
			return errEncoder
		}
		return nil
	}}
	logger := &recordingLogger{}
	rc := newRunContext(context.Background(), runner, logger,
		[]models.TaskInput{task(10, "b.png"), task(10, "a.png")}, 3)
	require.Equal(t, 5, rc.numTasks)

	w := newTaskWorkers(1)[0]
	for w.AssignTask(rc) {
		w.DoTask()
		w.EndTask(rc)
	}

	assert.Equal(t, 0, rc.inFlight)
	require.Len(t, rc.outputs, 1)
	assert.Equal(t, task(10, "a.png"), rc.outputs[0].Input)
	assert.Equal(t, 1, rc.failures)
	assert.Equal(t, 4, rc.numTasks)
	require.NotNil(t, rc.firstError)
	assert.ErrorIs(t, rc.firstError, errEncoder)
	assert.Equal(t, []models.TaskInput{task(10, "b.png")}, logger.failures)
	assert.False(t, rc.failed())
}

func TestRunContextFailed(t *testing.T) {
	rc := newRunContext(context.Background(), &fakeRunner{}, &recordingLogger{}, nil, 0)
	assert.False(t, rc.failed(), "an empty run is not a failure")

	rc.recordFailure(NewTaskError(task(10, "a.png"), errEncoder))
	assert.True(t, rc.failed(), "failures without any success")

	rc.outputs = append(rc.outputs, fakeOutput(task(20, "a.png")))
	assert.False(t, rc.failed())
}

func TestRunContextStopsAfterMaxFailures(t *testing.T) {
	remaining := make([]models.TaskInput, models.MaxFailures+10)
	for i := range remaining {
		remaining[i] = task(i%100, "a.png")
	}
	rc := newRunContext(context.Background(), &fakeRunner{}, &recordingLogger{}, remaining, 0)
	rc.outputs = append(rc.outputs, fakeOutput(task(0, "z.png")))

	for i := 0; i < models.MaxFailures; i++ {
		rc.recordFailure(NewTaskError(remaining[i], errEncoder))
	}
	assert.NotEmpty(t, rc.remaining)
	assert.False(t, rc.failed())

	rc.recordFailure(NewTaskError(remaining[0], errEncoder))
	assert.Empty(t, rc.remaining)
	assert.True(t, rc.failed())
}

func TestRunContextProgress(t *testing.T) {
	logger := &recordingLogger{}
	rc := newRunContext(context.Background(), &fakeRunner{}, logger,
		[]models.TaskInput{task(10, "a.png"), task(20, "a.png"), task(30, "a.png")}, 2)

	rc.maybeLogProgress()
	assert.Empty(t, logger.progress, "throttled by the default interval")

	rc.progressInterval = 0
	rc.start = time.Now().Add(-10 * time.Second)
	rc.remaining = rc.remaining[:1]
	rc.inFlight = 2
	rc.maybeLogProgress()

	require.Len(t, logger.progress, 1)
	p := logger.progress[0]
	assert.Equal(t, 2, p.Done)
	assert.Equal(t, 2, p.InFlight)
	assert.Equal(t, 5, p.Total)
	assert.GreaterOrEqual(t, p.Elapsed, 10*time.Second)
	// One task done worth of time per 10s, two left.
	assert.InDelta(t, float64(2*p.Elapsed), float64(p.Remaining), float64(time.Millisecond))
}
