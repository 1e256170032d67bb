package executor

import (
	"fmt"
	"slices"

	"github.com/harrison/codecbench/internal/models"
	"github.com/harrison/codecbench/internal/tasklog"
)

// Reconcile returns the planned tasks that have no counterpart in completed.
//
// Each completed entry consumes exactly one identical planned task, so
// repetitions are matched one by one. A completed entry that matches no
// planned task left is a DriftError. The result keeps the order of planned.
func Reconcile(completed []models.TaskOutput, planned []models.TaskInput) ([]models.TaskInput, error) {
	if len(completed) > len(planned) {
		return nil, &DriftError{
			Reason: fmt.Sprintf("%d completed tasks but only %d planned", len(completed), len(planned)),
		}
	}

	// Indices into planned and completed, sorted by task identity.
	plannedOrder := make([]int, len(planned))
	for i := range plannedOrder {
		plannedOrder[i] = i
	}
	slices.SortStableFunc(plannedOrder, func(a, b int) int {
		return models.CompareTaskInputs(planned[a], planned[b])
	})
	sortedCompleted := slices.Clone(completed)
	slices.SortStableFunc(sortedCompleted, func(a, b models.TaskOutput) int {
		return models.CompareTaskInputs(a.Input, b.Input)
	})

	done := make([]bool, len(planned))
	cursor := 0
	for _, c := range sortedCompleted {
		for cursor < len(plannedOrder) && models.CompareTaskInputs(planned[plannedOrder[cursor]], c.Input) < 0 {
			cursor++
		}
		if cursor == len(plannedOrder) || !planned[plannedOrder[cursor]].Equal(c.Input) {
			return nil, &DriftError{
				Reason: "completed task is not part of the current configuration",
				Entry:  tasklog.Format(c),
			}
		}
		done[plannedOrder[cursor]] = true
		cursor++
	}

	remaining := make([]models.TaskInput, 0, len(planned)-len(completed))
	for i, task := range planned {
		if !done[i] {
			remaining = append(remaining, task)
		}
	}
	return remaining, nil
}
