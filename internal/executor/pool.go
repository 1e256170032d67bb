package executor

import "sync"

// Worker is one participant of a Pool. C is the state shared by all workers
// of a pool.
//
// AssignTask and EndTask run with the pool lock held and may freely read and
// write the shared state. DoTask runs without the lock and must only touch
// what AssignTask handed to the worker.
type Worker[C any] interface {
	// AssignTask picks the next task. Returning false stops the worker.
	AssignTask(shared *C) bool
	// DoTask performs the assigned task.
	DoTask()
	// EndTask publishes the result of the task.
	EndTask(shared *C)
}

// Pool runs workers over a shared context until none of them gets a task.
type Pool[C any, W Worker[C]] struct {
	mu     sync.Mutex
	shared *C
}

// NewPool creates a pool over shared.
func NewPool[C any, W Worker[C]](shared *C) *Pool[C, W] {
	return &Pool[C, W]{shared: shared}
}

// Run starts len(workers)-1 goroutines and drives the last worker on the
// calling goroutine, returning once every worker has stopped. Run does
// nothing for an empty slice.
func (p *Pool[C, W]) Run(workers []W) {
	if len(workers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, w := range workers[:len(workers)-1] {
		wg.Add(1)
		go func(w W) {
			defer wg.Done()
			p.loop(w)
		}(w)
	}
	p.loop(workers[len(workers)-1])
	wg.Wait()
}

func (p *Pool[C, W]) loop(w W) {
	for p.assign(w) {
		w.DoTask()
		p.end(w)
	}
}

func (p *Pool[C, W]) assign(w W) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return w.AssignTask(p.shared)
}

func (p *Pool[C, W]) end(w W) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.EndTask(p.shared)
}
