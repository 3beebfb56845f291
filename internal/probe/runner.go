package probe

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/sketchmatch/pkg/logger"
)

// ErrVerification is returned by Run when any batch did not verify.
var ErrVerification = errors.New("probe verification failed")

// Normalize fills zero fields with defaults and rejects unusable ones.
func (c *Config) Normalize() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Batches == 0 {
		c.Batches = DefaultBatches
	}
	if c.Candidates == 0 {
		c.Candidates = DefaultCandidates
	}
	if c.Points == 0 {
		c.Points = DefaultPoints
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	switch {
	case c.Batches < 1, c.Candidates < 1, c.Workers < 1:
		return errors.New("batches, candidates and workers must be positive")
	case c.Points < 2:
		return fmt.Errorf("points must be at least 2, got %d", c.Points)
	case c.Resolution < 0:
		return fmt.Errorf("resolution must not be negative, got %d", c.Resolution)
	}
	return nil
}

// Run executes the probe against cfg.BaseURL and returns its statistics.
// The error wraps ErrVerification when any batch was rejected, failed or
// ranked the wrong candidate first.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	log := logger.Named("probe")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting sketchmatch probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("batches", cfg.Batches),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("workers", cfg.Workers),
		logger.String("method", cfg.Method),
	)

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg)
	batches := make([]Batch, 0, cfg.Batches)
	for i := 0; i < cfg.Batches; i++ {
		b, err := gen.Batch()
		if err != nil {
			return nil, fmt.Errorf("batch generation failed: %w", err)
		}
		batches = append(batches, b)
	}
	stats.BatchesGenerated = len(batches)

	var submitted, matched, mismatch, failed, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, b := range batches {
		g.Go(func() error {
			submitted.Add(1)
			rep, err := client.Analyze(gctx, b.Key, b.Request)
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, ErrRejected):
				rejected.Add(1)
				log.Warn(gctx, "batch rejected", logger.String("key", b.Key), logger.Error(err))
				return nil
			case err != nil:
				failed.Add(1)
				log.Warn(gctx, "batch failed", logger.String("key", b.Key), logger.Error(err))
				return nil
			}
			if err := Verify(b, rep); err != nil {
				if errors.Is(err, ErrMismatch) {
					mismatch.Add(1)
				} else {
					failed.Add(1)
				}
				log.Warn(gctx, "batch did not verify", logger.String("key", b.Key), logger.Error(err))
				return nil
			}
			matched.Add(1)
			if cfg.Verbose {
				log.Info(gctx, "batch verified",
					logger.String("key", b.Key),
					logger.Float64("topScore", rep.Results[0].Score),
					logger.Int("skipped", rep.Skipped))
			}
			return nil
		})
	}
	waitErr := g.Wait()

	stats.BatchesSubmitted = int(submitted.Load())
	stats.BatchesMatched = int(matched.Load())
	stats.BatchesMismatch = int(mismatch.Load())
	stats.BatchesFailed = int(failed.Load())
	stats.BatchesRejected = int(rejected.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if waitErr != nil {
		return stats, waitErr
	}
	if stats.BatchesMatched != stats.BatchesGenerated {
		return stats, fmt.Errorf("%w: %d of %d batches verified", ErrVerification, stats.BatchesMatched, stats.BatchesGenerated)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.BatchesSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.BatchesGenerated),
		logger.Int("submitted", stats.BatchesSubmitted),
		logger.Int("matched", stats.BatchesMatched),
		logger.Int("mismatched", stats.BatchesMismatch),
		logger.Int("failed", stats.BatchesFailed),
		logger.Int("rejected", stats.BatchesRejected),
		logger.Duration("duration", stats.Duration),
		logger.Float64("batchesPerSecond", perSecond),
	)
}
