// Package model contains domain models passed between layers.
package model

import (
	"math"
	"sort"
)

// Point is a position in 2-D space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Path is an ordered sequence of points. A reference path captured from a
// sketch has non-decreasing x values.
type Path []Point

// Clone returns a copy of the path that shares no memory with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Sequence is a named series of numeric values; the index of each value is
// its implicit x coordinate.
type Sequence struct {
	Name   string    // source identifier, usually a file name
	Values []float64 // one value per record index
}

// Result pairs a candidate name with its similarity score. Higher is better.
type Result struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// SortResults orders results by descending score, breaking ties by name.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
}
