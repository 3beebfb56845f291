// Package service wires the analysis controller, the job queue and the
// worker pool into the service the HTTP API talks to.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/sketchmatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/sketchmatch/internal/adapters/mq/worker"
	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/internal/domain/dedupe"
	"github.com/okian/sketchmatch/pkg/logger"
	"github.com/okian/sketchmatch/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize  = 256
	defaultDedupeSize = 4096
	stopTimeout       = 10 * time.Second
)

// Service accepts analysis requests and runs them on a bounded worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	controller *analysis.Controller
	jobs       queue.Queue
	workerPool *workerpool.Pool
	deduper    dedupe.Deduper

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	controllerOpts []analysis.Option

	// State
	started bool
	cancel  context.CancelFunc
	active  map[string]*analysis.Run

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of runs executed at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many runs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithControllerOptions configures the analysis controller.
func WithControllerOptions(opts ...analysis.Option) Option {
	return func(s *Service) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		active:      make(map[string]*analysis.Run),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.controller = analysis.NewController(append([]analysis.Option{analysis.WithLogger(s.logger.Named("analysis"))}, s.controllerOpts...)...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start creates the queue and starts the worker pool. The pool outlives
// ctx's deadline; it runs until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting analysis service...")

	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobs, s.controller)
	s.workerPool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop cancels every active run and shuts the worker pool down.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	runs := make([]*analysis.Run, 0, len(s.active))
	for _, r := range s.active {
		runs = append(runs, r)
	}
	pool, cancel := s.workerPool, s.cancel
	s.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), stopTimeout)
	defer done()

	s.logger.Info(ctx, "stopping analysis service...", logger.Int("activeRuns", len(runs)))

	for _, r := range runs {
		r.Cancel()
	}
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	cancel()

	s.logger.Info(ctx, "analysis service stopped")
}

// Submit queues req and returns the run to listen on. key, when not empty,
// must not belong to another run in flight. Cancelling ctx cancels the run.
func (s *Service) Submit(ctx context.Context, key string, req analysis.Request) (*analysis.Run, error) {
	s.mu.RLock()
	started, jobs := s.started, s.jobs
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	if key != "" && s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordErrorByComponent("service", "duplicate")
		return nil, ErrDuplicate
	}

	r := s.controller.NewRun(ctx)
	release := sync.OnceFunc(func() {
		s.mu.Lock()
		delete(s.active, r.ID())
		n := len(s.active)
		s.mu.Unlock()
		metrics.UpdateActiveRuns(n)
		if key != "" {
			s.deduper.Unrecord(context.WithoutCancel(ctx), key)
		}
	})

	s.mu.Lock()
	s.active[r.ID()] = r
	n := len(s.active)
	s.mu.Unlock()
	metrics.UpdateActiveRuns(n)

	if !jobs.Enqueue(ctx, queue.Job{Run: r, Request: req.Clone()}) {
		r.Cancel()
		release()
		err := rejection(ctx, jobs)
		s.logger.Warn(ctx, "analysis rejected",
			logger.String("run", r.ID()),
			logger.Int("queueLength", jobs.Len(ctx)),
			logger.Error(err),
		)
		return nil, err
	}

	go func() {
		<-r.Done()
		release()
	}()

	s.logger.Debug(ctx, "analysis queued",
		logger.String("run", r.ID()),
		logger.Int("candidates", len(req.Inputs)),
	)
	return r, nil
}

// rejection names why jobs refused a run. Only a full queue is backpressure;
// a queue closed by a concurrent Stop means the service is not running.
func rejection(ctx context.Context, jobs queue.Queue) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("analysis not queued: %w", ctx.Err())
	case jobs.IsClosed():
		return ErrNotStarted
	default:
		return ErrBackpressure
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"activeRuns":  len(s.active),
		"trackedKeys": s.deduper.Size(),
	}

	if s.started {
		stats["queueLength"] = s.jobs.Len(ctx)
		stats["processedRuns"] = s.workerPool.Processed()
	}

	return stats
}
