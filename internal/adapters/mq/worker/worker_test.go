package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/sketchmatch/internal/adapters/mq/queue"
	worker "github.com/okian/sketchmatch/internal/adapters/mq/worker"
	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/internal/domain/model"
	"github.com/okian/sketchmatch/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockDriver struct {
	mu    sync.Mutex
	runs  []string
	block chan struct{}
}

func (md *mockDriver) Drive(r *analysis.Run, _ analysis.Request) {
	if md.block != nil {
		<-md.block
	}
	md.mu.Lock()
	md.runs = append(md.runs, r.ID())
	md.mu.Unlock()
}

func (md *mockDriver) driven() []string {
	md.mu.Lock()
	defer md.mu.Unlock()
	return append([]string(nil), md.runs...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func validRequest() analysis.Request {
	return analysis.Request{
		Reference: model.Path{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}},
		Inputs: []extract.Input{
			{Name: "peak", Content: `{"s":[{"v":0},{"v":10},{"v":0}]}`},
			{Name: "flat", Content: `{"s":[{"v":0},{"v":0},{"v":0}]}`},
		},
		Fields: extract.Fields{Array: "s", Value: "v"},
		Config: analysis.Config{Resolution: 8, Method: scoring.DTW{}},
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		mq := newMockQueue()
		driver := &mockDriver{}
		w := worker.NewInMemoryWorker(mq, driver, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When an idle run is queued", func() {
			job := queue.Job{Run: analysis.NewRun(ctx, 1)}
			mq.jobs <- job

			convey.Convey("Then it should be driven", func() {
				convey.So(waitFor(func() bool { return len(driver.driven()) == 1 }), convey.ShouldBeTrue)
				convey.So(driver.driven()[0], convey.ShouldEqual, job.Run.ID())
			})
		})

		convey.Convey("When a run is cancelled while queued", func() {
			cancelled := queue.Job{Run: analysis.NewRun(ctx, 1)}
			cancelled.Run.Cancel()
			live := queue.Job{Run: analysis.NewRun(ctx, 1)}
			mq.jobs <- cancelled
			mq.jobs <- live

			convey.Convey("Then only the live run should be driven", func() {
				convey.So(waitFor(func() bool { return len(driver.driven()) == 1 }), convey.ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				convey.So(driver.driven(), convey.ShouldResemble, []string{live.Run.ID()})
			})
		})

		convey.Convey("When the worker is shut down", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			convey.Convey("Then it should stop without error", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		mq := newMockQueue()
		w := worker.NewInMemoryWorker(mq, &mockDriver{})
		finished := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(finished)
		}()
		_ = mq.Close()

		convey.Convey("Then Run should return", func() {
			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("worker did not stop after queue close")
			}
		})
	})

	convey.Convey("Given a worker stuck on a job", t, func() {
		mq := newMockQueue()
		driver := &mockDriver{block: make(chan struct{})}
		w := worker.NewInMemoryWorker(mq, driver)
		go w.Run(context.Background())
		mq.jobs <- queue.Job{Run: analysis.NewRun(context.Background(), 1)}
		defer close(driver.block)

		convey.Convey("Then Shutdown should give up when its context expires", func() {
			time.Sleep(20 * time.Millisecond)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldNotBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool driving real analysis runs", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		pool := worker.NewPool(3, q, analysis.NewController())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When several runs are queued", func() {
			var runs []*analysis.Run
			for i := 0; i < 5; i++ {
				r := analysis.NewRun(ctx, 16)
				convey.So(q.Enqueue(ctx, queue.Job{Run: r, Request: validRequest()}), convey.ShouldBeTrue)
				runs = append(runs, r)
			}

			convey.Convey("Then each should complete with the peaked candidate first", func() {
				for _, r := range runs {
					var last analysis.Event
					for ev := range r.Events() {
						last = ev
					}
					done, ok := last.(analysis.Completed)
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(done.Results[0].Name, convey.ShouldEqual, "peak")
					convey.So(r.State(), convey.ShouldEqual, analysis.StateCompleted)
				}
				convey.So(waitFor(func() bool { return pool.Processed() == 5 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool shuts down with runs still queued", func() {
			waiting := analysis.NewRun(ctx, 1)
			convey.So(q.Enqueue(ctx, queue.Job{Run: waiting, Request: validRequest()}), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then the queue should refuse new work and every run should be closed", func() {
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(q.Enqueue(ctx, queue.Job{Run: analysis.NewRun(ctx, 1)}), convey.ShouldBeFalse)
				select {
				case <-waiting.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("queued run was not released")
				}
			})
		})
	})

	convey.Convey("Given a pool whose only worker is stuck on a job", t, func() {
		mq := newMockQueue()
		driver := &mockDriver{block: make(chan struct{})}
		pool := worker.NewPool(1, mq, driver)
		pool.Start(context.Background())
		mq.jobs <- queue.Job{Run: analysis.NewRun(context.Background(), 1)}
		defer close(driver.block)

		convey.Convey("Then Shutdown should report the worker that did not stop", func() {
			convey.So(waitFor(func() bool { return len(mq.jobs) == 0 }), convey.ShouldBeTrue)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "1 of 1 workers did not stop")
		})
	})
}
