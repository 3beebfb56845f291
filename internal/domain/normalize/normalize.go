// Package normalize turns raw sketches and candidate sequences into point
// sequences that share a coordinate frame.
package normalize

import (
	"fmt"
	"math"

	"github.com/okian/sketchmatch/internal/domain/model"
)

// minPathPoints is the shortest path that has an arc length.
const minPathPoints = 2

// Range is a closed interval on one axis.
type Range struct {
	Min float64
	Max float64
}

// Span returns the width of the interval.
func (r Range) Span() float64 { return r.Max - r.Min }

// Mid returns the centre of the interval.
func (r Range) Mid() float64 { return r.Min + r.Span()/2 }

// Resample returns exactly n points spaced evenly along the arc length of
// path. The first and last points of the result are the first and last
// points of path.
func Resample(path model.Path, n int) (model.Path, error) {
	if len(path) < minPathPoints {
		return nil, fmt.Errorf("%w: resample needs %d points, got %d", ErrInsufficientPoints, minPathPoints, len(path))
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: resolution must be positive, got %d", ErrInsufficientPoints, n)
	}

	out := make(model.Path, n)
	if n == 1 {
		out[0] = path[0]
		return out, nil
	}

	// cumulative[i] is the arc length from path[0] to path[i]
	cumulative := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		cumulative[i] = cumulative[i-1] + model.Distance(path[i-1], path[i])
	}
	total := cumulative[len(cumulative)-1]

	if total == 0 {
		for i := range out {
			out[i] = path[0]
		}
		return out, nil
	}

	seg := 0
	for k := 0; k < n; k++ {
		target := total * float64(k) / float64(n-1)
		for seg < len(path)-2 && cumulative[seg+1] < target {
			seg++
		}
		out[k] = interpolate(path[seg], path[seg+1], cumulative[seg], cumulative[seg+1], target)
	}
	out[0] = path[0]
	out[n-1] = path[len(path)-1]

	return out, nil
}

// interpolate returns the point at arc length target on the segment a→b,
// where a sits at arc length from and b at arc length to.
func interpolate(a, b model.Point, from, to, target float64) model.Point {
	length := to - from
	if length <= 0 {
		return a
	}
	t := (target - from) / length
	t = math.Max(0, math.Min(1, t))
	return model.Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// ToPointSequence pairs each value with its index: point i is (i, values[i]).
func ToPointSequence(seq model.Sequence) (model.Path, error) {
	if len(seq.Values) < minPathPoints {
		return nil, fmt.Errorf("%w: %q has %d values, need at least %d", ErrEmptySequence, seq.Name, len(seq.Values), minPathPoints)
	}
	out := make(model.Path, len(seq.Values))
	for i, v := range seq.Values {
		out[i] = model.Point{X: float64(i), Y: v}
	}
	return out, nil
}

// Bounds returns the x and y extents of path. An empty path yields zero ranges.
func Bounds(path model.Path) (x, y Range) {
	if len(path) == 0 {
		return Range{}, Range{}
	}
	x = Range{Min: path[0].X, Max: path[0].X}
	y = Range{Min: path[0].Y, Max: path[0].Y}
	for _, p := range path[1:] {
		x.Min = math.Min(x.Min, p.X)
		x.Max = math.Max(x.Max, p.X)
		y.Min = math.Min(y.Min, p.Y)
		y.Max = math.Max(y.Max, p.Y)
	}
	return x, y
}

// SequenceRanges returns the frame a candidate occupies once converted to
// points: [0, len-1] on x and [min, max] of its values on y.
func SequenceRanges(seq model.Sequence) (x, y Range) {
	if len(seq.Values) == 0 {
		return Range{}, Range{}
	}
	x = Range{Min: 0, Max: float64(len(seq.Values) - 1)}
	y = Range{Min: seq.Values[0], Max: seq.Values[0]}
	for _, v := range seq.Values[1:] {
		y.Min = math.Min(y.Min, v)
		y.Max = math.Max(y.Max, v)
	}
	return x, y
}

// NormalizeScale maps path linearly so that its bounding box becomes
// targetX × targetY. An axis with zero extent in path is left as is. An axis
// whose target has zero extent is translated onto the target value and keeps
// its own extent.
func NormalizeScale(path model.Path, targetX, targetY Range) model.Path {
	srcX, srcY := Bounds(path)
	mapX := axisMap(srcX, targetX)
	mapY := axisMap(srcY, targetY)

	out := make(model.Path, len(path))
	for i, p := range path {
		out[i] = model.Point{X: mapX(p.X), Y: mapY(p.Y)}
	}
	return out
}

func axisMap(src, dst Range) func(float64) float64 {
	switch {
	case src.Span() == 0:
		return func(v float64) float64 { return v }
	case dst.Span() == 0:
		shift := dst.Min - src.Mid()
		return func(v float64) float64 { return v + shift }
	default:
		scale := dst.Span() / src.Span()
		return func(v float64) float64 { return dst.Min + (v-src.Min)*scale }
	}
}
