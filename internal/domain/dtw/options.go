package dtw

// Option applies a configuration option to a DTW computation.
type Option func(*options)

type options struct {
	window       int     // Sakoe-Chiba band half-width; 0 means unconstrained
	slopePenalty float64 // added to every non-diagonal step
}

// WithWindow restricts alignments to |i-j| <= w. The band is widened to the
// length difference of the inputs so the final cell stays reachable.
// Non-positive values leave the alignment unconstrained.
func WithWindow(w int) Option {
	return func(o *options) {
		if w > 0 {
			o.window = w
		}
	}
}

// WithSlopePenalty adds p to the cost of every horizontal or vertical step.
// Negative values are ignored.
func WithSlopePenalty(p float64) Option {
	return func(o *options) {
		if p >= 0 {
			o.slopePenalty = p
		}
	}
}
