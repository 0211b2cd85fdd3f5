// Package queue holds the buffers rows wait in between a scan and the next
// database write.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO. A queue created with NewBounded drops its
// oldest items once it holds more than its limit, so a database outage
// cannot grow it without end.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped int
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// NewBounded creates a queue holding at most limit items. limit <= 0 means
// unbounded.
func NewBounded[T any](limit int) *Queue[T] {
	q := New[T]()
	if limit > 0 {
		q.limit = limit
	}
	return q
}

// Push appends items and returns how many old items were dropped to stay
// within the limit.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	return q.trim()
}

// Requeue puts items back in front of the queue, ahead of everything pushed
// since they were taken out. Used when a write fails.
func (q *Queue[T]) Requeue(items ...T) int {
	if len(items) == 0 {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	q.items = append(merged, q.items...)
	return q.trim()
}

func (q *Queue[T]) trim() int {
	if q.limit == 0 || len(q.items) <= q.limit {
		return 0
	}
	n := len(q.items) - q.limit
	q.items = append(q.items[:0:0], q.items[n:]...)
	q.dropped += n
	return n
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped is the total number of items discarded by the limit.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
