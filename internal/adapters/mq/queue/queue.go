// Package queue is a bounded in-memory job queue for batch exports.
package queue

import (
	"context"
	"sync"

	"github.com/okian/quickshop/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds a job. It fails with ErrFull or ErrClosed instead of
	// blocking.
	Enqueue(ctx context.Context, job T) error

	// Dequeue returns a channel that yields jobs until the queue is closed
	// and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan T

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	jobs     chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue holding at most the configured capacity.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	metrics.UpdateQueueDepth(0)
	return &InMemoryQueue[T]{
		jobs:     make(chan T, cfg.capacity),
		capacity: cfg.capacity,
	}
}

// Enqueue adds job to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, job T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("cancelled")
		return err
	}

	select {
	case q.jobs <- job:
		metrics.UpdateQueueDepth(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue returns a channel of queued jobs.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				metrics.UpdateQueueDepth(len(q.jobs))
				select {
				case out <- job:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.jobs)
}

// Capacity returns the maximum number of queued jobs.
func (q *InMemoryQueue[T]) Capacity() int {
	return q.capacity
}

// Close stops new enqueues. Jobs already queued are still delivered.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
