package analysis

import (
	"github.com/okian/sketchmatch/internal/domain/dtw"
	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/pkg/logger"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithExtractor replaces the record extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(c *Controller) {
		if e != nil {
			c.extractor = e
		}
	}
}

// WithParallelism evaluates up to n candidates at once. Values below 1 are
// ignored.
func WithParallelism(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithProgressEvery emits a progress event after every n candidates. The
// last candidate always produces one.
func WithProgressEvery(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.progressEvery = n
		}
	}
}

// WithMaxResolution caps the resampling resolution a request may ask for.
func WithMaxResolution(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxResolution = n
		}
	}
}

// WithMaxCandidates caps the batch size a request may carry.
func WithMaxCandidates(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxCandidates = n
		}
	}
}

// WithDTWOptions forwards options to every DTW computation.
func WithDTWOptions(opts ...dtw.Option) Option {
	return func(c *Controller) {
		c.dtwOpts = append(c.dtwOpts, opts...)
	}
}

// WithEventBuffer sets the capacity of each run's event channel.
func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.eventBuffer = n
		}
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
