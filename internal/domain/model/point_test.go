package model_test

import (
	"math"
	"testing"

	model "github.com/okian/sketchmatch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPoint(t *testing.T) {
	convey.Convey("Given two points", t, func() {
		p := model.Point{X: 0, Y: 0}
		q := model.Point{X: 3, Y: 4}

		convey.Convey("Then the distance is Euclidean and symmetric", func() {
			convey.So(model.Distance(p, q), convey.ShouldEqual, 5.0)
			convey.So(model.Distance(q, p), convey.ShouldEqual, 5.0)
			convey.So(model.Distance(p, p), convey.ShouldEqual, 0.0)
		})

		convey.Convey("Then finiteness is reported per coordinate", func() {
			convey.So(p.IsFinite(), convey.ShouldBeTrue)
			convey.So(model.Point{X: math.NaN()}.IsFinite(), convey.ShouldBeFalse)
			convey.So(model.Point{Y: math.Inf(-1)}.IsFinite(), convey.ShouldBeFalse)
		})
	})
}

func TestPathClone(t *testing.T) {
	convey.Convey("Given a path", t, func() {
		path := model.Path{{X: 0, Y: 1}, {X: 1, Y: 2}}

		convey.Convey("When it is cloned and the clone is modified", func() {
			c := path.Clone()
			c[0].Y = 99

			convey.Convey("Then the original is untouched", func() {
				convey.So(path[0].Y, convey.ShouldEqual, 1.0)
				convey.So(len(c), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a nil path is cloned", func() {
			var empty model.Path
			convey.So(empty.Clone(), convey.ShouldBeNil)
		})
	})
}

func TestSortResults(t *testing.T) {
	convey.Convey("Given unordered results with a tie", t, func() {
		results := []model.Result{
			{Name: "c.json", Score: 0.5},
			{Name: "b.json", Score: 0.9},
			{Name: "a.json", Score: 0.5},
		}

		model.SortResults(results)

		convey.Convey("Then they are ordered by score and then by name", func() {
			convey.So(results[0].Name, convey.ShouldEqual, "b.json")
			convey.So(results[1].Name, convey.ShouldEqual, "a.json")
			convey.So(results[2].Name, convey.ShouldEqual, "c.json")
		})
	})
}
