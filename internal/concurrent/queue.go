// Package concurrent contains the lock-free task queue and bounded worker pool that back request
// and log record dispatch. These are the Go-idiomatic analogues of the hand-rolled lock-free queue
// and thread pool in the system this package was adapted from: where the original relies on manual
// reference counting to safely reclaim nodes freed by concurrent dequeuers, this implementation
// leans on the garbage collector, since no goroutine can observe a node after the last atomic
// pointer referencing it has been overwritten.
package concurrent

import (
	"sync/atomic"
)

// Queue is a multi-producer, multi-consumer, lock-free FIFO queue. It is a Michael-Scott style
// linked list: Enqueue and TryDequeue progress via compare-and-swap retry loops rather than a
// mutex, so no producer ever blocks waiting on a consumer or another producer.
type Queue struct {
	head atomic.Pointer[node]
	tail atomic.Pointer[node]
}

type node struct {
	value interface{}
	next  atomic.Pointer[node]
}

// NewQueue creates an empty queue, seeded with a sentinel dummy node so Enqueue and TryDequeue
// never need to special-case the empty-queue transition.
func NewQueue() *Queue {
	sentinel := &node{}
	q := &Queue{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends value to the tail of the queue. It always succeeds in a bounded number of CAS
// retries; it never blocks.
func (q *Queue) Enqueue(value interface{}) {
	n := &node{value: value}

	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			// tail really does point at the last node; try to link the new node after it.
			if tail.next.CompareAndSwap(nil, n) {
				// Help advance the tail pointer; if another producer beats us to it,
				// that's fine, the queue is still consistent.
				q.tail.CompareAndSwap(tail, n)
				return
			}
		} else {
			// Another producer linked a node but hasn't advanced tail yet. Help it
			// along before retrying our own insert.
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// TryDequeue removes and returns the value at the head of the queue. The second return value is
// false if the queue was empty.
func (q *Queue) TryDequeue() (interface{}, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()

		if head == tail {
			if next == nil {
				// Queue is empty.
				return nil, false
			}
			// tail lags behind; help advance it, then retry.
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		value := next.value
		if q.head.CompareAndSwap(head, next) {
			return value, true
		}
	}
}
