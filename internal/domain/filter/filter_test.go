package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quickshop/internal/domain/model"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func fixture() model.Rows {
	return model.Rows{
		{Date: day(1), Visitors: 100, Orders: 10, Revenue: decimal.NewFromInt(500), Segment: "Mobile"},
		{Date: day(2), Visitors: 200, Orders: 30, Revenue: decimal.NewFromInt(1500), Segment: "Desktop"},
		{Date: day(3), Visitors: 50, Orders: 2, Revenue: decimal.NewFromInt(80), Segment: "Tablet"},
		{Date: day(4), Visitors: 120, Orders: 12, Revenue: decimal.NewFromInt(600), Segment: "Mobile"},
	}
}

func TestApply(t *testing.T) {
	Convey("Given a row set", t, func() {
		rows := fixture()

		Convey("When filtering by an inclusive range", func() {
			out := Apply(rows, model.Selection{Start: day(2), End: day(3)})

			Convey("Then both bound dates are kept", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].Date, ShouldEqual, day(2))
				So(out[1].Date, ShouldEqual, day(3))
			})
		})

		Convey("When filtering by segment", func() {
			out := Apply(rows, model.Selection{Segments: []string{"Mobile"}})

			Convey("Then only that segment remains", func() {
				So(len(out), ShouldEqual, 2)
				for _, r := range out {
					So(r.Segment, ShouldEqual, "Mobile")
				}
			})
		})

		Convey("When the segment selection is empty", func() {
			empty := Apply(rows, model.Selection{Start: day(1), End: day(4)})
			all := Apply(rows, model.Selection{Start: day(1), End: day(4), Segments: Segments(rows)})

			Convey("Then it equals selecting every segment", func() {
				So(empty, ShouldResemble, all)
				So(len(empty), ShouldEqual, 4)
			})
		})

		Convey("When applying the same selection twice", func() {
			sel := model.Selection{Start: day(2), End: day(4), Segments: []string{"Mobile", "Desktop"}}
			once := Apply(rows, sel)
			twice := Apply(once, sel)

			Convey("Then the result is unchanged", func() {
				So(twice, ShouldResemble, once)
			})
		})

		Convey("When the range excludes every row", func() {
			out := Apply(rows, model.Selection{Start: day(10), End: day(20)})

			Convey("Then the result is empty but not nil", func() {
				So(out, ShouldNotBeNil)
				So(len(out), ShouldEqual, 0)
			})
		})

		Convey("When only one bound is set", func() {
			out := Apply(rows, model.Selection{Start: day(3)})
			So(len(out), ShouldEqual, 2)
		})

		Convey("When mutating the result", func() {
			out := Apply(rows, model.Selection{})
			out[0].Segment = "Changed"

			Convey("Then the input is untouched", func() {
				So(rows[0].Segment, ShouldEqual, "Mobile")
			})
		})
	})
}

func TestSelections(t *testing.T) {
	Convey("Given a row set", t, func() {
		rows := fixture()

		Convey("Then the default selection spans everything", func() {
			sel := DefaultSelection(rows)
			So(sel.Start, ShouldEqual, day(1))
			So(sel.End, ShouldEqual, day(4))
			So(sel.Segments, ShouldResemble, []string{"Desktop", "Mobile", "Tablet"})
		})

		Convey("Then an empty set has open bounds", func() {
			sel := DefaultSelection(nil)
			So(sel.Start.IsZero(), ShouldBeTrue)
			So(sel.End.IsZero(), ShouldBeTrue)
			So(len(sel.Segments), ShouldEqual, 0)
		})

		Convey("Then select all and clear all keep the range", func() {
			base := model.Selection{Start: day(2), End: day(3), Segments: []string{"Mobile"}}
			all := SelectAll(rows, base)
			So(all.Segments, ShouldResemble, []string{"Desktop", "Mobile", "Tablet"})
			So(all.Start, ShouldEqual, day(2))

			none := ClearAll(base)
			So(len(none.Segments), ShouldEqual, 0)
			So(none.End, ShouldEqual, day(3))
			So(base.Segments, ShouldResemble, []string{"Mobile"})
		})

		Convey("Then normalize swaps reversed bounds and dedupes segments", func() {
			sel := Normalize(model.Selection{
				Start:    day(5).Add(13 * time.Hour),
				End:      day(2),
				Segments: []string{"Mobile", "", "Mobile", "Desktop"},
			})
			So(sel.Start, ShouldEqual, day(2))
			So(sel.End, ShouldEqual, day(5))
			So(sel.Segments, ShouldResemble, []string{"Mobile", "Desktop"})
		})
	})
}
