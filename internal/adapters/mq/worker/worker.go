// Package worker runs batch jobs pulled from a queue on a fixed pool of
// goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

// Handler processes one job. Errors are logged and counted; they do not
// stop the worker.
type Handler[T any] interface {
	Handle(ctx context.Context, job T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, job T) error

// Handle calls f.
func (f HandlerFunc[T]) Handle(ctx context.Context, job T) error { return f(ctx, job) }

// Queue defines how workers receive jobs.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// InMemoryWorker drains a queue channel until it closes or ctx is done.
type InMemoryWorker[T any] struct {
	jobs    <-chan T
	handler Handler[T]
	name    string
	logger  logger.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// NewInMemoryWorker creates a worker reading from jobs.
func NewInMemoryWorker[T any](jobs <-chan T, handler Handler[T], opts ...Option) *InMemoryWorker[T] {
	o := options{name: "worker"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("worker")
	}
	return &InMemoryWorker[T]{
		jobs:    jobs,
		handler: handler,
		name:    o.name,
		logger:  o.logger.With(logger.String("worker", o.name)),
	}
}

// Run processes jobs until the channel closes or ctx is cancelled.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			if err := w.handler.Handle(ctx, job); err != nil {
				w.failed.Add(1)
				metrics.RecordErrorByType("batch_job", "medium")
				w.logger.Error(ctx, "job failed", logger.Error(err))
			}
			w.processed.Add(1)
		}
	}
}

// Processed returns how many jobs this worker finished, failed ones included.
func (w *InMemoryWorker[T]) Processed() int64 { return w.processed.Load() }

// Failed returns how many jobs returned an error.
func (w *InMemoryWorker[T]) Failed() int64 { return w.failed.Load() }

// Pool manages a fixed set of workers sharing one queue.
type Pool[T any] struct {
	workers []*InMemoryWorker[T]
	queue   Queue[T]
	handler Handler[T]
	logger  logger.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

// NewPool creates a pool of workerCount workers. A count below one uses
// one worker per CPU.
func NewPool[T any](workerCount int, queue Queue[T], handler Handler[T]) *Pool[T] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	return &Pool[T]{
		workers: make([]*InMemoryWorker[T], workerCount),
		queue:   queue,
		handler: handler,
		logger:  logger.Get().Named("worker-pool"),
	}
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Start launches every worker. Calling it again has no effect.
func (p *Pool[T]) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		jobs := p.queue.Dequeue(ctx)
		for i := range p.workers {
			w := NewInMemoryWorker(jobs, p.handler,
				WithName("worker-"+strconv.Itoa(i)),
				WithLogger(p.logger),
			)
			p.workers[i] = w
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				w.Run(ctx)
			}()
		}
		metrics.UpdateActiveWorkers(len(p.workers))
	})
}

// Wait blocks until every worker has returned, which happens once the
// queue is closed and drained or the pool is shut down.
func (p *Pool[T]) Wait() {
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	metrics.UpdateActiveWorkers(0)
}

// Processed sums finished jobs across workers.
func (p *Pool[T]) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		if w != nil {
			n += w.Processed()
		}
	}
	return n
}

// Shutdown closes the queue when it supports it and waits for the workers.
// Jobs still queued when ctx expires are abandoned.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
