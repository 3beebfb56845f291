// Package frechet computes the discrete Fréchet distance between two point
// sequences.
//
// The distance is the smallest achievable worst-case gap over all monotone
// couplings of the two sequences that start at their first points and end at
// their last points. It is computed with the coupling table
//
//	C[i][j] = max(d(a[i], b[j]), min(C[i-1][j], C[i][j-1], C[i-1][j-1]))
//
// keeping only two rows in memory. Time is O(m·n), memory O(n).
package frechet

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/sketchmatch/internal/domain/model"
)

var (
	// ErrEmptySequence indicates one or both inputs are empty.
	ErrEmptySequence = errors.New("frechet: input sequences must be non-empty")

	// ErrNonFinite indicates a pointwise distance or the result is NaN or infinite.
	ErrNonFinite = errors.New("frechet: non-finite distance")
)

// Distance returns the discrete Fréchet distance between a and b.
func Distance(a, b []model.Point) (float64, error) {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0, ErrEmptySequence
	}

	prev := make([]float64, n)
	curr := make([]float64, n)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			d := model.Distance(a[i], b[j])
			if !isFinite(d) {
				return 0, fmt.Errorf("%w at (%d, %d)", ErrNonFinite, i, j)
			}
			switch {
			case i == 0 && j == 0:
				curr[j] = d
			case i == 0:
				curr[j] = math.Max(d, curr[j-1])
			case j == 0:
				curr[j] = math.Max(d, prev[j])
			default:
				curr[j] = math.Max(d, min3(prev[j], curr[j-1], prev[j-1]))
			}
		}
		prev, curr = curr, prev
	}

	return prev[n-1], nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}
