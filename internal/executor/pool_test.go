package executor

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type counterContext struct {
	next    int
	total   int
	results []int
	locked  atomic.Int32
	overlap bool
}

func (c *counterContext) enter() {
	if c.locked.Add(1) != 1 {
		c.overlap = true
	}
}

func (c *counterContext) leave() {
	c.locked.Add(-1)
}

type squareWorker struct {
	task   int
	result int
}

func (w *squareWorker) AssignTask(c *counterContext) bool {
	c.enter()
	defer c.leave()
	if c.next == c.total {
		return false
	}
	w.task = c.next
	c.next++
	return true
}

func (w *squareWorker) DoTask() {
	w.result = w.task * w.task
}

func (w *squareWorker) EndTask(c *counterContext) {
	c.enter()
	defer c.leave()
	c.results = append(c.results, w.result)
}

func TestPool_RunsEveryTaskOnce(t *testing.T) {
	const numTasks = 100

	for _, numWorkers := range []int{1, 2, 10} {
		t.Run(fmt.Sprintf("%d workers", numWorkers), func(t *testing.T) {
			shared := &counterContext{total: numTasks}
			workers := make([]*squareWorker, numWorkers)
			for i := range workers {
				workers[i] = &squareWorker{}
			}

			NewPool[counterContext, *squareWorker](shared).Run(workers)

			sort.Ints(shared.results)
			expected := make([]int, numTasks)
			for i := range expected {
				expected[i] = i * i
			}
			assert.Equal(t, expected, shared.results)
			assert.False(t, shared.overlap, "AssignTask and EndTask must not overlap")
		})
	}
}

func TestPool_NoWorker(t *testing.T) {
	shared := &counterContext{total: 10}
	NewPool[counterContext, *squareWorker](shared).Run(nil)
	assert.Empty(t, shared.results)
	assert.Equal(t, 0, shared.next)
}

func TestPool_NoTask(t *testing.T) {
	shared := &counterContext{}
	NewPool[counterContext, *squareWorker](shared).Run([]*squareWorker{{}, {}, {}})
	assert.Empty(t, shared.results)
}
