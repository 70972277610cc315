package concurrent

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of work submitted to a Pool.
type Task func()

// Pool is a fixed-size fan-out of worker goroutines draining a single lock-free task queue. It is
// the Go analogue of a thread pool backed by a lock-free queue: workers never block each other,
// and shutdown is cooperative rather than forced.
type Pool struct {
	queue       *Queue
	done        atomic.Bool
	pollLatency time.Duration
	joiner      sync.WaitGroup
}

// PoolOpts formalizes Pool configuration.
type PoolOpts struct {
	// Workers is the number of fixed worker goroutines. Non-positive values default to the number
	// of logical CPUs.
	Workers int
	// PollLatency is the duration an idle worker sleeps for between empty dequeue attempts. Zero
	// means the worker yields to the scheduler instead of sleeping, which trades CPU usage for
	// lower dispatch latency.
	PollLatency time.Duration
}

// NewPool creates a pool and immediately starts its fixed worker goroutines.
func NewPool(opts PoolOpts) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}

	p := &Pool{
		queue:       NewQueue(),
		pollLatency: opts.PollLatency,
	}

	p.joiner.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit enqueues a task for execution by some worker. It does not block, and it does not surface
// panics raised by the task: the task is expected to handle its own errors.
func (p *Pool) Submit(task Task) {
	p.queue.Enqueue(task)
}

// SubmitAwait enqueues a task and returns a context that is done once the task has completed. The
// task's return value, if any, should be captured by the caller via closure.
func (p *Pool) SubmitAwait(task Task) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	p.queue.Enqueue(Task(func() {
		defer cancel()
		task()
	}))

	return ctx
}

// Shutdown signals every worker to stop accepting new polls once the queue next empties, then
// blocks until all workers have drained the queue and exited. It is safe to call exactly once.
func (p *Pool) Shutdown() {
	p.done.Store(true)
	p.joiner.Wait()
}

func (p *Pool) worker() {
	defer p.joiner.Done()

	for !p.done.Load() {
		if task, ok := p.queue.TryDequeue(); ok {
			runTask(task.(Task))
			continue
		}

		if p.pollLatency > 0 {
			time.Sleep(p.pollLatency)
		} else {
			runtime.Gosched()
		}
	}

	// Drain whatever remains once more so no submitted task is silently dropped on shutdown.
	for {
		task, ok := p.queue.TryDequeue()
		if !ok {
			return
		}
		runTask(task.(Task))
	}
}

// runTask invokes task, recovering a panic so that one misbehaving task cannot take down its
// worker goroutine (and, since workers are otherwise identical, effectively the whole pool).
func runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("concurrent: recovered panic in pool task: %v", r)
		}
	}()

	task()
}
