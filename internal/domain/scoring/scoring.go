// Package scoring turns curve distances into bounded similarity scores.
package scoring

import (
	"context"
	"fmt"

	"github.com/okian/sketchmatch/internal/domain/dtw"
	"github.com/okian/sketchmatch/internal/domain/frechet"
	"github.com/okian/sketchmatch/internal/domain/model"
)

// Similarity maps a non-negative distance into (0, 1]; zero distance scores 1.
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

// Combine returns the weighted average of two per-metric scores.
func Combine(frechetScore, dtwScore, frechetWeight, dtwWeight float64) (float64, error) {
	if err := validateWeights(frechetWeight, dtwWeight); err != nil {
		return 0, err
	}
	return (frechetWeight*frechetScore + dtwWeight*dtwScore) / (frechetWeight + dtwWeight), nil
}

// Input holds the two point sequences to compare, already in a shared frame.
type Input struct {
	Name      string
	Reference []model.Point
	Candidate []model.Point
}

// Result contains the score for a candidate and the raw distances behind it.
// A distance that the method did not compute is zero.
type Result struct {
	Name    string
	Score   float64
	Frechet float64
	DTW     float64
}

// Scorer computes a similarity score for an input.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// Option applies a configuration option to the PathScorer.
type Option func(*PathScorer)

// WithDTWOptions sets options forwarded to every DTW computation.
func WithDTWOptions(opts ...dtw.Option) Option {
	return func(s *PathScorer) {
		s.dtwOpts = append(s.dtwOpts, opts...)
	}
}

// PathScorer implements Scorer for a fixed Method.
type PathScorer struct {
	method  Method
	dtwOpts []dtw.Option
}

// NewPathScorer creates a scorer for method. The method is validated here so
// that a scorer never exists with unusable weights.
func NewPathScorer(method Method, opts ...Option) (*PathScorer, error) {
	if method == nil {
		return nil, fmt.Errorf("%w: no method selected", ErrUnknownMethod)
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}
	s := &PathScorer{method: method}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Method returns the method this scorer applies.
func (s *PathScorer) Method() Method { return s.method }

// Score computes the similarity between in.Reference and in.Candidate.
func (s *PathScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	res, err := s.method.evaluate(evaluator{in: in, dtwOpts: s.dtwOpts})
	if err != nil {
		return Result{}, fmt.Errorf("score %q with %s: %w", in.Name, s.method.Name(), err)
	}
	res.Name = in.Name
	return res, nil
}

// evaluator gives methods access to the distance functions for one input.
type evaluator struct {
	in      Input
	dtwOpts []dtw.Option
}

func (e evaluator) frechet() (float64, error) {
	return frechet.Distance(e.in.Reference, e.in.Candidate)
}

func (e evaluator) dtw() (float64, error) {
	return dtw.Distance(e.in.Reference, e.in.Candidate, e.dtwOpts...)
}
