package queue

import (
	"sync"
)

// Queue is a mutex-guarded FIFO. A positive limit caps how many items it holds;
// pushes past the limit are rejected rather than growing the buffer.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// New creates an empty queue. limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends items in order and returns how many were accepted.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(items)
	if q.limit > 0 {
		if room := q.limit - len(q.items); n > room {
			n = max(room, 0)
		}
	}
	q.items = append(q.items, items[:n]...)
	q.dropped += uint64(len(items) - n)
	return n
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped is the total number of items rejected because the queue was full.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear discards queued items. The dropped counter is kept.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
