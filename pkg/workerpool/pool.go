// Package workerpool runs background tasks on a fixed number of goroutines.
//
//	pool := workerpool.New(4)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    task() // caller absorbs the backpressure
//	}
package workerpool

import (
	"errors"
	"sync"

	"github.com/shashiranjanraj/bookstore/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: queue is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a bounded set of workers fed by a buffered queue.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	wg     sync.WaitGroup
}

// New starts size workers with a queue of 2×size pending tasks.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{tasks: make(chan func(), size*2)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Submit queues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops intake and waits for queued tasks to finish. Safe to call
// more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		run(task)
	}
}

// run keeps a panicking task from killing its worker.
func run(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("workerpool: task panicked", "panic", rec)
		}
	}()
	task()
}
