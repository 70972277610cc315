package concurrent

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolSubmitRunsTask(t *testing.T) {
	p := NewPool(PoolOpts{Workers: 2})
	defer p.Shutdown()

	var ran atomic.Bool
	p.Submit(func() {
		ran.Store(true)
	})

	deadline := time.Now().Add(time.Second)
	for !ran.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if !ran.Load() {
		t.Fatal("expected submitted task to run within the deadline")
	}
}

func TestPoolRunsAllSubmittedTasks(t *testing.T) {
	p := NewPool(PoolOpts{Workers: 4})

	const count = 200
	var wg sync.WaitGroup
	wg.Add(count)

	var completed atomic.Int64
	for i := 0; i < count; i++ {
		p.Submit(func() {
			completed.Add(1)
			wg.Done()
		})
	}

	wg.Wait()
	p.Shutdown()

	if completed.Load() != count {
		t.Errorf("expected %d completed tasks, got %d", count, completed.Load())
	}
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	p := NewPool(PoolOpts{Workers: 1})

	var completed atomic.Int64
	for i := 0; i < 50; i++ {
		p.Submit(func() {
			completed.Add(1)
		})
	}

	p.Shutdown()

	if completed.Load() != 50 {
		t.Errorf("expected shutdown to drain all 50 tasks, got %d", completed.Load())
	}
}

func TestPoolSubmitAwaitCompletes(t *testing.T) {
	p := NewPool(PoolOpts{Workers: 2})
	defer p.Shutdown()

	var result int
	ctx := p.SubmitAwait(func() {
		result = 42
	})

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected SubmitAwait context to be done within the deadline")
	}

	if result != 42 {
		t.Errorf("expected task to have run, got result=%d", result)
	}
}
