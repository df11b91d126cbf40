// Package queue is an unbounded FIFO with a stop sentinel and task-done accounting.
package queue

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Put once the stop sentinel has been pushed.
var ErrStopped = errors.New("queue is stopped")

type entry[T any] struct {
	value T
	stop  bool
}

// Queue is safe for any number of producers; it is meant to be drained by a single consumer.
type Queue[T any] struct {
	mu       sync.Mutex
	ready    *sync.Cond // signalled when items grow
	drained  *sync.Cond // signalled when unfinished reaches zero
	items    []entry[T]
	pending  int
	stopping bool
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.ready = sync.NewCond(&q.mu)
	q.drained = sync.NewCond(&q.mu)
	return q
}

// Put appends v to the tail of the queue.
func (q *Queue[T]) Put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopping {
		return ErrStopped
	}
	q.push(entry[T]{value: v})
	return nil
}

// Stop pushes the stop sentinel behind everything already queued.
// Later calls are no-ops.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopping {
		return
	}
	q.stopping = true
	q.push(entry[T]{stop: true})
}

func (q *Queue[T]) push(e entry[T]) {
	q.items = append(q.items, e)
	q.pending++
	q.ready.Signal()
}

// Get blocks until an entry is available. ok is false when the entry is the stop sentinel.
// Every Get must be matched by a Done.
func (q *Queue[T]) Get() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.ready.Wait()
	}

	e := q.items[0]
	var zero entry[T]
	q.items[0] = zero
	q.items = q.items[1:]

	return e.value, !e.stop
}

// Done marks the most recently taken entry as fully processed.
func (q *Queue[T]) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending <= 0 {
		panic("queue: Done called more times than entries were queued")
	}
	q.pending--
	if q.pending == 0 {
		q.drained.Broadcast()
	}
}

// Join blocks until every queued entry, sentinel included, has been marked Done.
func (q *Queue[T]) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending > 0 {
		q.drained.Wait()
	}
}

// Len returns the number of entries waiting to be taken, sentinel included.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
