package executor

import (
	"context"
	"fmt"

	"github.com/harrison/codecbench/internal/filelock"
	"github.com/harrison/codecbench/internal/models"
	"github.com/harrison/codecbench/internal/tasklog"
)

// recomputeDistortions replaces the distortions of every entry of the log at
// path by measuring the encoded files saved on disk again. Timings and sizes
// are kept. The previous log is left at path+tasklog.BackupSuffix and the
// updated entries are returned.
func (c *Comparator) recomputeDistortions(ctx context.Context, settings models.ComparisonSettings, path string) ([]models.TaskOutput, error) {
	lock := filelock.For(path)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	completed, err := tasklog.Load(path, true)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, nil
	}

	logger := c.loggerFor(settings)
	logger.LogInfo("Discarding read distortion values and recomputing them")

	// Each encoded file is measured once, repetitions share the result.
	var unique []models.TaskInput
	seen := make(map[string]bool)
	for _, o := range completed {
		if o.Input.EncodedPath == "" {
			return nil, fmt.Errorf("%w: cannot recompute distortions of %s %s without its encoded file",
				models.ErrInvalidConfiguration, o.Input.ImagePath, o.Input.Settings)
		}
		if !seen[o.Input.EncodedPath] {
			seen[o.Input.EncodedPath] = true
			unique = append(unique, o.Input)
		}
	}

	if _, err := tasklog.Rotate(path); err != nil {
		return nil, err
	}

	rc := newRunContext(ctx, c.runner, logger, unique, 0)
	rc.loadOnly = true
	rc.progressInterval = c.progressInterval
	NewPool[runContext, *taskWorker](rc).Run(newTaskWorkers(settings.NumWorkers()))

	if rc.firstError != nil {
		return nil, fmt.Errorf("failed to recompute distortions: %w", rc.firstError)
	}
	if len(rc.outputs) != len(unique) {
		return nil, fmt.Errorf("distortions recomputed for %d of %d encoded files: %w",
			len(rc.outputs), len(unique), ctx.Err())
	}

	byPath := make(map[string]*models.TaskOutput, len(rc.outputs))
	for i := range rc.outputs {
		byPath[rc.outputs[i].Input.EncodedPath] = &rc.outputs[i]
	}
	for i := range completed {
		completed[i].Distortions = byPath[completed[i].Input.EncodedPath].Distortions
	}

	if err := tasklog.Rewrite(path, completed); err != nil {
		return nil, err
	}
	logger.LogInfo("Done recomputing distortion values")
	return completed, nil
}
