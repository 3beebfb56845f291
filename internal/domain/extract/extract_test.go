package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/sketchmatch/internal/domain/extract"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleRecord = `{
  "meta": {"device": "sensor-1"},
  "tags": ["a", "b"],
  "empty": [],
  "samples": [
    {"t": 0, "v": 1.5, "label": "x"},
    {"t": 1, "v": "2.25"},
    {"t": 2, "v": -3}
  ]
}`

func TestParse(t *testing.T) {
	Convey("Given raw record text", t, func() {
		Convey("When it is a JSON object", func() {
			rec, err := extract.Parse("ok.json", []byte(sampleRecord))

			Convey("Then it is parsed", func() {
				So(err, ShouldBeNil)
				So(rec, ShouldContainKey, "samples")
			})
		})

		Convey("When it is malformed", func() {
			_, err := extract.Parse("bad.json", []byte(`{"samples": [`))

			Convey("Then it fails with a parse error naming the input", func() {
				So(errors.Is(err, extract.ErrParse), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "bad.json")
			})
		})

		Convey("When the top-level value is not an object", func() {
			_, err := extract.Parse("list.json", []byte(`[1, 2]`))
			So(errors.Is(err, extract.ErrParse), ShouldBeTrue)

			_, err = extract.Parse("null.json", []byte(`null`))
			So(errors.Is(err, extract.ErrParse), ShouldBeTrue)
		})
	})
}

func TestSequence(t *testing.T) {
	Convey("Given a parsed record", t, func() {
		rec, err := extract.Parse("rec.json", []byte(sampleRecord))
		So(err, ShouldBeNil)

		Convey("When the configured fields exist", func() {
			seq, err := extract.Sequence("rec.json", rec, extract.Fields{Array: "samples", Value: "v"})

			Convey("Then numbers and numeric strings are extracted in order", func() {
				So(err, ShouldBeNil)
				So(seq.Name, ShouldEqual, "rec.json")
				So(seq.Values, ShouldResemble, []float64{1.5, 2.25, -3})
			})
		})

		Convey("When the array field is absent", func() {
			_, err := extract.Sequence("rec.json", rec, extract.Fields{Array: "readings", Value: "v"})
			So(errors.Is(err, extract.ErrFieldMissing), ShouldBeTrue)
		})

		Convey("When the array field is not an array of objects", func() {
			_, err := extract.Sequence("rec.json", rec, extract.Fields{Array: "meta", Value: "v"})
			So(errors.Is(err, extract.ErrFieldMissing), ShouldBeTrue)

			_, err = extract.Sequence("rec.json", rec, extract.Fields{Array: "tags", Value: "v"})
			So(errors.Is(err, extract.ErrFieldMissing), ShouldBeTrue)
		})

		Convey("When an element lacks the value field", func() {
			_, err := extract.Sequence("rec.json", rec, extract.Fields{Array: "samples", Value: "label"})
			So(errors.Is(err, extract.ErrFieldMissing), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "samples[1]")
		})

		Convey("When an element value is not numeric", func() {
			bad, err := extract.Parse("bad.json", []byte(`{"s": [{"v": 1}, {"v": true}]}`))
			So(err, ShouldBeNil)
			_, err = extract.Sequence("bad.json", bad, extract.Fields{Array: "s", Value: "v"})
			So(errors.Is(err, extract.ErrFieldMissing), ShouldBeTrue)
		})
	})
}

func TestJSONExtractor(t *testing.T) {
	Convey("Given the JSON extractor", t, func() {
		ex := extract.NewJSONExtractor()
		fields := extract.Fields{Array: "samples", Value: "t"}

		Convey("When extracting a valid input", func() {
			seq, err := ex.Extract(context.Background(), extract.Input{Name: "a.json", Content: sampleRecord}, fields)
			So(err, ShouldBeNil)
			So(seq.Values, ShouldResemble, []float64{0, 1, 2})
		})

		Convey("When extracting malformed text", func() {
			_, err := ex.Extract(context.Background(), extract.Input{Name: "b.json", Content: "not json"}, fields)
			So(errors.Is(err, extract.ErrParse), ShouldBeTrue)
		})
	})
}

func TestSchemaDiscovery(t *testing.T) {
	Convey("Given a parsed record", t, func() {
		rec, err := extract.Parse("rec.json", []byte(sampleRecord))
		So(err, ShouldBeNil)

		Convey("Then only non-empty arrays of objects are offered", func() {
			So(extract.ArrayKeys(rec), ShouldResemble, []string{"samples"})
		})

		Convey("Then element keys come from the first element", func() {
			So(extract.ElementKeys(rec, "samples"), ShouldResemble, []string{"label", "t", "v"})
		})

		Convey("Then non-array fields yield no element keys", func() {
			So(extract.ElementKeys(rec, "meta"), ShouldBeNil)
			So(extract.ElementKeys(rec, "tags"), ShouldBeNil)
			So(extract.ElementKeys(rec, "missing"), ShouldBeNil)
		})
	})

	Convey("Given a record holding arrays of arrays and of nulls", t, func() {
		rec, err := extract.Parse("nested.json", []byte(`{
  "grid": [[0, 1], [2, 3]],
  "holes": [null, {"v": 1}],
  "counts": [1, 2],
  "samples": [{"v": 1}]
}`))
		So(err, ShouldBeNil)

		Convey("Then nested arrays are offered as roots but null-led arrays are not", func() {
			So(extract.ArrayKeys(rec), ShouldResemble, []string{"grid", "samples"})
		})

		Convey("Then a nested array offers no element keys", func() {
			So(extract.ElementKeys(rec, "grid"), ShouldBeNil)
		})
	})
}
