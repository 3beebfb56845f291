package frechet_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/sketchmatch/internal/domain/frechet"
	"github.com/okian/sketchmatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistance(t *testing.T) {
	Convey("Given a zig-zag sequence", t, func() {
		a := []model.Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: -1}, {X: 3, Y: 1}}

		Convey("Then its distance to itself is zero", func() {
			d, err := frechet.Distance(a, a)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 0.0)
		})

		Convey("When compared with a shifted copy", func() {
			b := make([]model.Point, len(a))
			for i, p := range a {
				b[i] = model.Point{X: p.X, Y: p.Y + 3}
			}

			Convey("Then the distance equals the shift", func() {
				d, err := frechet.Distance(a, b)
				So(err, ShouldBeNil)
				So(d, ShouldAlmostEqual, 3.0, 1e-12)
			})
		})

		Convey("When compared with a sequence of a different length", func() {
			b := []model.Point{{X: 0, Y: 0}, {X: 3, Y: 1}}

			Convey("Then the distance is non-negative and symmetric", func() {
				ab, err := frechet.Distance(a, b)
				So(err, ShouldBeNil)
				ba, err := frechet.Distance(b, a)
				So(err, ShouldBeNil)
				So(ab, ShouldBeGreaterThan, 0)
				So(ab, ShouldEqual, ba)
			})
		})
	})

	Convey("Given two short sequences with a known coupling", t, func() {
		a := []model.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
		b := []model.Point{{X: 0, Y: 1}, {X: 2, Y: 1}}

		Convey("Then the distance is the worst gap of the best coupling", func() {
			d, err := frechet.Distance(a, b)
			So(err, ShouldBeNil)
			// a[1] must pair with b[0] or b[1], both at distance sqrt(2).
			So(d, ShouldAlmostEqual, math.Sqrt2, 1e-12)
		})
	})

	Convey("Given single points", t, func() {
		d, err := frechet.Distance([]model.Point{{X: 0, Y: 0}}, []model.Point{{X: 3, Y: 4}})
		So(err, ShouldBeNil)
		So(d, ShouldEqual, 5.0)
	})

	Convey("Given invalid input", t, func() {
		Convey("When a sequence is empty", func() {
			_, err := frechet.Distance(nil, []model.Point{{X: 1}})
			So(errors.Is(err, frechet.ErrEmptySequence), ShouldBeTrue)
		})

		Convey("When a point overflows the distance", func() {
			a := []model.Point{{X: 0, Y: 0}, {X: math.MaxFloat64, Y: 0}}
			b := []model.Point{{X: 0, Y: 0}, {X: -math.MaxFloat64, Y: 0}}
			_, err := frechet.Distance(a, b)
			So(errors.Is(err, frechet.ErrNonFinite), ShouldBeTrue)
		})
	})
}

func BenchmarkDistance(b *testing.B) {
	const n = 256
	x := make([]model.Point, n)
	y := make([]model.Point, n)
	for i := 0; i < n; i++ {
		x[i] = model.Point{X: float64(i), Y: math.Sin(float64(i) / 10)}
		y[i] = model.Point{X: float64(i), Y: math.Cos(float64(i) / 10)}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = frechet.Distance(x, y)
	}
}
