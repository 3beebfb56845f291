// Package analysis runs one ranking job: it validates a request, scores
// every candidate against the reference sketch and returns the ranked
// results, streaming progress along the way.
//
// Candidate failures that come from the data (unparseable text, missing
// fields, sequences too short, non-finite distances) skip that candidate and
// are reported as Diagnostic events. Any other failure aborts the run with no
// partial results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/sketchmatch/internal/domain/dtw"
	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/internal/domain/frechet"
	"github.com/okian/sketchmatch/internal/domain/model"
	"github.com/okian/sketchmatch/internal/domain/normalize"
	"github.com/okian/sketchmatch/internal/domain/scoring"
	"github.com/okian/sketchmatch/pkg/logger"
	"github.com/okian/sketchmatch/pkg/metrics"
)

// Default controller configuration constants.
const (
	defaultParallelism   = 1
	defaultProgressEvery = 1
	defaultEventBuffer   = 64
)

// Controller drives analysis runs. It holds configuration only; every run
// owns its own state, so one Controller can serve concurrent runs.
type Controller struct {
	extractor     extract.Extractor
	parallelism   int
	progressEvery int
	maxResolution int
	maxCandidates int
	eventBuffer   int
	dtwOpts       []dtw.Option

	logger logger.Logger
}

// NewController creates a controller with configuration options.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		extractor:     extract.NewJSONExtractor(),
		parallelism:   defaultParallelism,
		progressEvery: defaultProgressEvery,
		eventBuffer:   defaultEventBuffer,
		logger:        logger.Get().Named("analysis"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// candidateOutcome is the per-candidate result: a score or the reason the
// candidate was dropped.
type candidateOutcome struct {
	name   string
	result scoring.Result
	err    error
}

// Execute runs req on the calling goroutine. Progress and Diagnostic events
// are passed to emit; the terminal event is not, see Terminal.
//
// The returned error wraps ErrInvalidRequest for validation failures, is a
// *FailureError for internal failures, or is the context error when ctx was
// cancelled.
func (c *Controller) Execute(ctx context.Context, req Request, emit func(Event)) (Completed, error) {
	if emit == nil {
		emit = func(Event) {}
	}
	start := time.Now()
	methodName := "none"
	if req.Config.Method != nil {
		methodName = req.Config.Method.Name()
	}
	metrics.RecordRunStarted(methodName)

	done, err := c.execute(ctx, req, emit)

	outcome := runOutcomeLabel(ctx, err)
	metrics.RecordRunFinished(outcome, float64(time.Since(start).Milliseconds()))
	switch outcome {
	case "completed":
		c.logger.Info(ctx, "analysis completed",
			logger.Int("candidates", len(req.Inputs)),
			logger.Int("ranked", len(done.Results)),
			logger.Int("skipped", done.Skipped),
			logger.String("method", methodName),
		)
	case "cancelled":
		c.logger.Debug(ctx, "analysis cancelled", logger.Error(err))
	default:
		c.logger.Warn(ctx, "analysis failed", logger.String("outcome", outcome), logger.Error(err))
	}
	return done, err
}

func (c *Controller) execute(ctx context.Context, req Request, emit func(Event)) (Completed, error) {
	if err := c.validate(req); err != nil {
		return Completed{}, err
	}
	reference, err := normalize.Resample(req.Reference, req.Config.Resolution)
	if err != nil {
		return Completed{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	scorer, err := scoring.NewPathScorer(req.Config.Method, scoring.WithDTWOptions(c.dtwOpts...))
	if err != nil {
		return Completed{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	total := len(req.Inputs)
	tracker := &progressTracker{total: total, every: c.progressEvery, emit: emit}
	emit(Progress{Fraction: 0, Status: progressStatus(0, total)})

	outcomes := make([]candidateOutcome, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, in := range req.Inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := c.evaluateSafely(gctx, scorer, reference, in, req)
			outcomes[i] = o
			if o.err != nil && !isRecoverable(o.err) {
				return o.err
			}
			if gctx.Err() == nil {
				tracker.done(o)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Completed{}, ctxErr
		}
		var fe *FailureError
		if errors.As(err, &fe) {
			return Completed{}, fe
		}
		return Completed{}, &FailureError{Message: "candidate evaluation failed", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Completed{}, err
	}

	return partition(outcomes), nil
}

// evaluateSafely scores one candidate and turns a panic into a FailureError.
func (c *Controller) evaluateSafely(ctx context.Context, scorer scoring.Scorer, reference model.Path, in extract.Input, req Request) (out candidateOutcome) {
	out.name = in.Name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.err = &FailureError{
				Message: fmt.Sprintf("panic while scoring %q: %v", in.Name, r),
				Trace:   string(debug.Stack()),
			}
		}
	}()

	res, err := c.evaluate(ctx, scorer, reference, in, req)
	if err != nil {
		out.err = err
		if isRecoverable(err) {
			metrics.RecordCandidateSkipped(skipReason(err))
			c.logger.Debug(ctx, "candidate skipped", logger.String("name", in.Name), logger.Error(err))
		}
		return out
	}
	out.result = res
	metrics.RecordCandidateScored(req.Config.Method.Name(), float64(time.Since(start).Microseconds())/1000, res.Score)
	return out
}

// evaluate runs the normalizer, the evaluators and the scorer for one input.
func (c *Controller) evaluate(ctx context.Context, scorer scoring.Scorer, reference model.Path, in extract.Input, req Request) (scoring.Result, error) {
	seq, err := c.extractor.Extract(ctx, in, req.Fields)
	if err != nil {
		return scoring.Result{}, err
	}
	points, err := normalize.ToPointSequence(seq)
	if err != nil {
		return scoring.Result{}, err
	}
	candidate, err := normalize.Resample(points, req.Config.Resolution)
	if err != nil {
		return scoring.Result{}, err
	}
	xRange, yRange := normalize.SequenceRanges(seq)
	ref := normalize.NormalizeScale(reference, xRange, yRange)

	return scorer.Score(ctx, scoring.Input{Name: in.Name, Reference: ref, Candidate: candidate})
}

// partition splits outcomes into ranked results and a skip count.
func partition(outcomes []candidateOutcome) Completed {
	done := Completed{Results: make([]model.Result, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.err != nil {
			done.Skipped++
			continue
		}
		done.Results = append(done.Results, model.Result{Name: o.name, Score: o.result.Score})
	}
	model.SortResults(done.Results)
	return done
}

// isRecoverable reports whether err only disqualifies a single candidate.
func isRecoverable(err error) bool {
	return skipReason(err) != ""
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, extract.ErrParse):
		return "parse_error"
	case errors.Is(err, extract.ErrFieldMissing):
		return "field_missing"
	case errors.Is(err, normalize.ErrEmptySequence), errors.Is(err, normalize.ErrInsufficientPoints):
		return "too_short"
	case errors.Is(err, frechet.ErrNonFinite), errors.Is(err, dtw.ErrNonFinite):
		return "non_finite"
	default:
		return ""
	}
}

func runOutcomeLabel(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "completed"
	case ctx.Err() != nil:
		return "cancelled"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	default:
		return "failed"
	}
}

// progressTracker serializes progress and diagnostic events so that
// fractions never decrease, whatever order candidates finish in.
type progressTracker struct {
	mu        sync.Mutex
	processed int
	total     int
	every     int
	emit      func(Event)
}

func (t *progressTracker) done(o candidateOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	if o.err != nil {
		t.emit(Diagnostic{Name: o.name, Message: o.err.Error()})
	}
	if t.processed%t.every == 0 || t.processed == t.total {
		t.emit(Progress{
			Fraction: float64(t.processed) / float64(t.total),
			Status:   progressStatus(t.processed, t.total),
		})
	}
}
