// Package dtw computes the Dynamic Time Warping cost between two point
// sequences.
//
// DTW sums pointwise distances along the cheapest monotone alignment:
//
//	D[0][0] = d(a[0], b[0])
//	D[i][j] = d(a[i], b[j]) + min(D[i-1][j], D[i][j-1], D[i-1][j-1])
//
// where cells outside the grid contribute +Inf, so the first row and column
// accumulate along one axis only. Two rows are kept in memory.
//
// Complexity:
//
//	Time   = O(m·n)
//	Memory = O(n)
package dtw

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/sketchmatch/internal/domain/model"
)

var (
	// ErrEmptySequence indicates one or both inputs are empty.
	ErrEmptySequence = errors.New("dtw: input sequences must be non-empty")

	// ErrNonFinite indicates a pointwise distance or the result is NaN or infinite.
	ErrNonFinite = errors.New("dtw: non-finite cost")
)

// Distance returns the DTW cost of aligning a with b.
func Distance(a, b []model.Point, opts ...Option) (float64, error) {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0, ErrEmptySequence
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	window := math.MaxInt
	if o.window > 0 {
		window = max(o.window, absInt(m-n))
	}

	inf := math.Inf(1)
	prev := make([]float64, n)
	curr := make([]float64, n)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if absInt(i-j) > window {
				curr[j] = inf
				continue
			}
			d := model.Distance(a[i], b[j])
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return 0, fmt.Errorf("%w at (%d, %d)", ErrNonFinite, i, j)
			}

			best := inf
			if i == 0 && j == 0 {
				best = 0
			}
			if i > 0 {
				best = math.Min(best, prev[j]+o.slopePenalty)
			}
			if j > 0 {
				best = math.Min(best, curr[j-1]+o.slopePenalty)
			}
			if i > 0 && j > 0 {
				best = math.Min(best, prev[j-1])
			}
			curr[j] = d + best
		}
		prev, curr = curr, prev
	}

	cost := prev[n-1]
	if math.IsInf(cost, 0) || math.IsNaN(cost) {
		return 0, fmt.Errorf("%w: accumulated cost overflowed", ErrNonFinite)
	}
	return cost, nil
}

// absInt returns the absolute value of an int.
func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
