// Package worker executes queued analysis runs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sketchmatch/internal/adapters/mq/queue"
	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/pkg/logger"
	"github.com/okian/sketchmatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Driver executes a run to completion on the calling goroutine.
// *analysis.Controller implements it.
type Driver interface {
	Drive(r *analysis.Run, req analysis.Request)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drives queued runs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// The job in progress is finished before the worker stops.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of a Queue.
type InMemoryWorker struct {
	queue       Queue
	driver      Driver
	name        string
	onProcessed func()

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, driver Driver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		driver:      driver,
		name:        "worker",
		onProcessed: func() {},
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Cancelling the dequeue context on exit hands back any job the queue
	// already pulled for this worker.
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := w.queue.Dequeue(dctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.signal()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) signal() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// processJob drives a single run.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if job.Run.State() != analysis.StateIdle {
		w.logger.Debug(ctx, "skipping run cancelled while queued", logger.String("run", job.Run.ID()))
		return
	}

	metrics.IncWorkerBusy()
	start := time.Now()
	defer func() {
		metrics.DecWorkerBusy()
		metrics.RecordWorkerJobLatency(float64(time.Since(start).Milliseconds()))
		w.onProcessed()
	}()

	w.driver.Drive(job.Run, job.Request)

	if job.Run.State() == analysis.StateFailed {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "run_failed")
	}
	w.logger.Debug(ctx, "run finished",
		logger.String("run", job.Run.ID()),
		logger.String("state", job.Run.State().String()),
		logger.Duration("elapsed", time.Since(start)),
	)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below 1 uses one worker
// per CPU.
func NewPool(workerCount int, queue Queue, driver Driver) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			driver,
			WithName("worker-"+strconv.Itoa(i)),
			WithProcessedCounter(func() { pool.processed.Add(1) }),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of runs the pool has driven.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue, stops every worker and cancels the runs that
// were still waiting. It returns an error naming how many workers were still
// busy when ctx (or the pool's own timeout) expired.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for _, worker := range p.workers {
		worker.signal()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	stuck := 0
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			stuck++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	if drainer, ok := p.queue.(interface{ Drain() int }); ok {
		if n := drainer.Drain(); n > 0 {
			p.logger.Info(ctx, "cancelled queued runs", logger.Int("count", n))
		}
	}

	metrics.UpdateWorkerCount(0)
	if stuck > 0 {
		return fmt.Errorf("%d of %d workers did not stop: %w", stuck, len(p.workers), shutdownCtx.Err())
	}
	return nil
}
