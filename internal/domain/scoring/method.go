package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Method names accepted on the wire.
const (
	MethodFrechet  = "frechet"
	MethodDTW      = "dtw"
	MethodCombined = "combined"
)

// Method selects how distances become a similarity score. The set of
// variants is closed: Frechet, DTW and Combined. Each variant scores itself,
// so a new variant cannot be added without its scoring logic.
type Method interface {
	// Name returns the wire name of the method.
	Name() string
	// Validate reports configuration errors such as unusable weights.
	Validate() error

	evaluate(e evaluator) (Result, error)
}

// Frechet scores by discrete Fréchet distance only.
type Frechet struct{}

// DTW scores by Dynamic Time Warping cost only.
type DTW struct{}

// Combined scores by a weighted average of the Fréchet and DTW scores.
type Combined struct {
	FrechetWeight float64
	DTWWeight     float64
}

func (Frechet) Name() string  { return MethodFrechet }
func (DTW) Name() string      { return MethodDTW }
func (Combined) Name() string { return MethodCombined }

func (Frechet) Validate() error { return nil }
func (DTW) Validate() error     { return nil }

// Validate requires non-negative finite weights that are not both zero.
func (c Combined) Validate() error {
	return validateWeights(c.FrechetWeight, c.DTWWeight)
}

func (Frechet) evaluate(e evaluator) (Result, error) {
	d, err := e.frechet()
	if err != nil {
		return Result{}, err
	}
	return Result{Score: Similarity(d), Frechet: d}, nil
}

func (DTW) evaluate(e evaluator) (Result, error) {
	d, err := e.dtw()
	if err != nil {
		return Result{}, err
	}
	return Result{Score: Similarity(d), DTW: d}, nil
}

func (c Combined) evaluate(e evaluator) (Result, error) {
	fd, err := e.frechet()
	if err != nil {
		return Result{}, err
	}
	dd, err := e.dtw()
	if err != nil {
		return Result{}, err
	}
	score, err := Combine(Similarity(fd), Similarity(dd), c.FrechetWeight, c.DTWWeight)
	if err != nil {
		return Result{}, err
	}
	return Result{Score: score, Frechet: fd, DTW: dd}, nil
}

// ParseMethod maps a wire name to a Method. Weights are only read for
// "combined".
func ParseMethod(name string, frechetWeight, dtwWeight float64) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MethodFrechet:
		return Frechet{}, nil
	case MethodDTW:
		return DTW{}, nil
	case MethodCombined:
		m := Combined{FrechetWeight: frechetWeight, DTWWeight: dtwWeight}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

func validateWeights(fw, dw float64) error {
	for _, w := range []float64{fw, dw} {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weights must be finite and non-negative, got %v and %v", ErrInvalidWeights, fw, dw)
		}
	}
	if fw+dw == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	return nil
}
