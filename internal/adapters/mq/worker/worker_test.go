package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/quickshop/internal/adapters/mq/queue"
	"github.com/okian/quickshop/internal/adapters/mq/worker"
	"github.com/okian/quickshop/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recorder struct {
	mu   sync.Mutex
	seen []int
	fail map[int]bool
}

func (r *recorder) Handle(_ context.Context, job int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, job)
	if r.fail[job] {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker on a channel", t, func() {
		jobs := make(chan int, 3)
		rec := &recorder{fail: map[int]bool{2: true}}
		w := worker.NewInMemoryWorker[int](jobs, rec, worker.WithName("w1"))

		convey.Convey("When the channel delivers jobs and closes", func() {
			jobs <- 1
			jobs <- 2
			jobs <- 3
			close(jobs)
			w.Run(context.Background())

			convey.Convey("Then every job is handled and failures are counted", func() {
				convey.So(rec.count(), convey.ShouldEqual, 3)
				convey.So(w.Processed(), convey.ShouldEqual, 3)
				convey.So(w.Failed(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a queue", t, func() {
		q := queue.NewInMemoryQueue[int](queue.WithCapacity(100))
		var handled atomic.Int64
		h := worker.HandlerFunc[int](func(context.Context, int) error {
			handled.Add(1)
			return nil
		})
		pool := worker.NewPool[int](4, q, h)

		convey.Convey("Then it has the requested size", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 4)
		})

		convey.Convey("When jobs are queued and the pool is shut down", func() {
			ctx := context.Background()
			for i := 0; i < 50; i++ {
				convey.So(q.Enqueue(ctx, i), convey.ShouldBeNil)
			}
			pool.Start(ctx)
			pool.Start(ctx)

			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued job is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(handled.Load(), convey.ShouldEqual, 50)
				convey.So(pool.Processed(), convey.ShouldEqual, 50)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the shutdown deadline passes with a stuck job", func() {
			block := make(chan struct{})
			defer close(block)
			stuck := worker.HandlerFunc[int](func(ctx context.Context, _ int) error {
				select {
				case <-block:
				case <-ctx.Done():
				}
				return ctx.Err()
			})
			q2 := queue.NewInMemoryQueue[int]()
			p2 := worker.NewPool[int](1, q2, stuck)
			convey.So(q2.Enqueue(context.Background(), 1), convey.ShouldBeNil)
			p2.Start(context.Background())
			time.Sleep(10 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := p2.Shutdown(ctx)

			convey.Convey("Then Shutdown reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with no worker count", t, func() {
		pool := worker.NewPool[int](0, queue.NewInMemoryQueue[int](), worker.HandlerFunc[int](func(context.Context, int) error { return nil }))

		convey.Convey("Then it sizes itself to the CPUs", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
