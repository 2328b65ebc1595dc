package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/pkg/logger"
)

func init() {
	_ = logger.Init()
}

const goodCSV = `Date,Visitors,Orders,Revenue,Segment
2024-01-01,100,10,500.50,Mobile
2024-01-01,200,30,1500,Desktop
2024-01-02,120,12,600,Mobile
`

func TestLoad(t *testing.T) {
	Convey("Given a loader", t, func() {
		fixed := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
		l := New(WithClock(func() time.Time { return fixed }))
		ctx := context.Background()

		Convey("When the input is well formed", func() {
			ds, err := l.Load(ctx, strings.NewReader(goodCSV), "good.csv")

			Convey("Then every record becomes a typed row", func() {
				So(err, ShouldBeNil)
				So(ds.Source, ShouldEqual, "good.csv")
				So(ds.LoadedAt, ShouldEqual, fixed)
				So(ds.Records, ShouldEqual, 3)
				So(ds.Dropped, ShouldEqual, 0)
				So(len(ds.Rows), ShouldEqual, 3)

				r := ds.Rows[0]
				So(r.Date, ShouldEqual, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
				So(r.Visitors, ShouldEqual, 100)
				So(r.Orders, ShouldEqual, 10)
				So(r.Revenue.String(), ShouldEqual, "500.5")
				So(r.Segment, ShouldEqual, "Mobile")
				So(ds.Segments(), ShouldResemble, []string{"Desktop", "Mobile"})
			})
		})

		Convey("When columns are reordered, padded and extended", func() {
			in := "\ufeff Segment , Revenue,Extra,Orders,Visitors,Date\nMobile,10,x,1,5,2024-03-04\n"
			ds, err := l.Load(ctx, strings.NewReader(in), "odd.csv")

			Convey("Then they are matched by name", func() {
				So(err, ShouldBeNil)
				So(len(ds.Rows), ShouldEqual, 1)
				So(ds.Rows[0].Visitors, ShouldEqual, 5)
				So(ds.Rows[0].Segment, ShouldEqual, "Mobile")
			})
		})

		Convey("When required columns are missing", func() {
			in := "Date,Visitors,Revenue\n2024-01-01,1,1\n"
			ds, err := l.Load(ctx, strings.NewReader(in), "bad.csv")

			Convey("Then a schema error names all of them", func() {
				So(ds, ShouldBeNil)
				So(errors.Is(err, ErrSchema), ShouldBeTrue)
				var se *SchemaError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Missing, ShouldResemble, []string{"Orders", "Segment"})
				So(err.Error(), ShouldContainSubstring, "Orders, Segment")
			})
		})

		Convey("When the input is empty", func() {
			_, err := l.Load(ctx, strings.NewReader(""), "empty.csv")

			Convey("Then it is a schema error", func() {
				So(errors.Is(err, ErrSchema), ShouldBeTrue)
			})
		})

		Convey("When the input has a header only", func() {
			ds, err := l.Load(ctx, strings.NewReader("Date,Visitors,Orders,Revenue,Segment\n"), "h.csv")

			Convey("Then the row set is empty", func() {
				So(err, ShouldBeNil)
				So(ds.Records, ShouldEqual, 0)
				So(len(ds.Rows), ShouldEqual, 0)
			})
		})

		Convey("When the CSV syntax is broken", func() {
			in := "Date,Visitors,Orders,Revenue,Segment\n2024-01-01,1,1,1,\"Mob\"ile\n"
			_, err := l.Load(ctx, strings.NewReader(in), "broken.csv")

			Convey("Then a parse error is returned", func() {
				So(errors.Is(err, ErrParse), ShouldBeTrue)
			})
		})

		Convey("When some values cannot be coerced", func() {
			in := strings.Join([]string{
				"Date,Visitors,Orders,Revenue,Segment",
				"2024-01-01,100,10,50,Mobile",
				"not-a-date,100,10,50,Mobile",
				"2024-01-02,-5,10,50,Mobile",
				"2024-01-03,1.5,10,50,Mobile",
				"2024-01-04,100,10,abc,Mobile",
				"2024-01-05,100,10,50,  ",
				"2024-01-06,100,10",
				"2024-01-07 10:30:00,7.0,1,-0,Desktop",
				"2024-01-08T23:00:00Z,8,1,1.25,Desktop",
			}, "\n")
			ds, err := l.Load(ctx, strings.NewReader(in), "mixed.csv")

			Convey("Then bad records are dropped and reported", func() {
				So(err, ShouldBeNil)
				So(ds.Records, ShouldEqual, 9)
				So(len(ds.Rows), ShouldEqual, 3)
				So(ds.Dropped, ShouldEqual, 6)
				So(len(ds.Rows)+ds.Dropped, ShouldEqual, ds.Records)
				So(len(ds.Errors), ShouldEqual, 6)

				So(ds.Errors[0].Line, ShouldEqual, 3)
				So(ds.Errors[0].Column, ShouldEqual, model.ColDate)
				So(ds.Errors[1].Column, ShouldEqual, model.ColVisitors)
				So(ds.Errors[1].Reason, ShouldEqual, "negative")
				So(ds.Errors[2].Reason, ShouldEqual, "not an integer")
				So(ds.Errors[3].Column, ShouldEqual, model.ColRevenue)
				So(ds.Errors[4].Column, ShouldEqual, model.ColSegment)
				So(ds.Errors[5].Reason, ShouldEqual, "value missing")
			})

			Convey("Then timestamps are truncated to their date", func() {
				So(ds.Rows[1].Date, ShouldEqual, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC))
				So(ds.Rows[1].Visitors, ShouldEqual, 7)
				So(ds.Rows[2].Date, ShouldEqual, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When counts do not fit in an int64", func() {
			in := strings.Join([]string{
				"Date,Visitors,Orders,Revenue,Segment",
				"2024-01-01,18446744073709551716,1,1,Mobile",
				"2024-01-02,9223372036854775808,1,1,Mobile",
				"2024-01-03,1,1e30,1,Mobile",
				"2024-01-04,9223372036854775807,1,1,Mobile",
			}, "\n")
			ds, err := l.Load(ctx, strings.NewReader(in), "huge.csv")

			Convey("Then they are dropped as out of range", func() {
				So(err, ShouldBeNil)
				So(ds.Dropped, ShouldEqual, 3)
				So(len(ds.Rows), ShouldEqual, 1)
				So(ds.Rows[0].Visitors, ShouldEqual, int64(math.MaxInt64))
				So(ds.Errors[0].Column, ShouldEqual, model.ColVisitors)
				So(ds.Errors[0].Reason, ShouldEqual, "out of range")
				So(ds.Errors[1].Reason, ShouldEqual, "out of range")
				So(ds.Errors[2].Column, ShouldEqual, model.ColOrders)
				So(ds.Errors[2].Reason, ShouldEqual, "out of range")
			})
		})

		Convey("When the error cap is lower than the failures", func() {
			capped := New(WithMaxErrors(1))
			in := "Date,Visitors,Orders,Revenue,Segment\nx,1,1,1,A\ny,1,1,1,A\n"
			ds, err := capped.Load(ctx, strings.NewReader(in), "cap.csv")

			Convey("Then only the first errors are kept but all are counted", func() {
				So(err, ShouldBeNil)
				So(ds.Dropped, ShouldEqual, 2)
				So(len(ds.Errors), ShouldEqual, 1)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := l.Load(cctx, strings.NewReader(goodCSV), "good.csv")

			Convey("Then loading stops", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a CSV file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "daily.csv")
		So(os.WriteFile(path, []byte(goodCSV), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			ds, err := New().LoadFile(context.Background(), path)

			Convey("Then the source is the base name", func() {
				So(err, ShouldBeNil)
				So(ds.Source, ShouldEqual, "daily.csv")
				So(len(ds.Rows), ShouldEqual, 3)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := New().LoadFile(context.Background(), path+".missing")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSchemaResolve(t *testing.T) {
	Convey("Given the default schema", t, func() {
		Convey("When the header repeats a column", func() {
			idx, err := DefaultSchema.Resolve([]string{"Date", "Date", "Visitors", "Orders", "Revenue", "Segment"})

			Convey("Then the first occurrence wins", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldResemble, []int{0, 2, 3, 4, 5})
			})
		})

		Convey("Then names and kinds are in canonical order", func() {
			So(DefaultSchema.Names(), ShouldResemble, []string{"Date", "Visitors", "Orders", "Revenue", "Segment"})
			So(KindMoney.String(), ShouldEqual, "money")
		})
	})
}

func TestLoadLogging(t *testing.T) {
	Convey("Given a loader logging json into a buffer", t, func() {
		var buf bytes.Buffer
		So(logger.InitWith(&buf, logger.FormatJSON), ShouldBeNil)
		defer func() { _ = logger.Init() }()
		l := New()

		Convey("When a schema mismatch is logged", func() {
			_, err := l.Load(context.Background(), strings.NewReader("Date,Visitors\n"), "bad.csv")
			So(err, ShouldNotBeNil)

			Convey("Then the file name and the caller use distinct keys", func() {
				line := strings.TrimSpace(buf.String())
				So(strings.Count(line, `"source"`), ShouldEqual, 1)
				var rec struct {
					Loader map[string]any `json:"loader"`
				}
				So(json.Unmarshal([]byte(line), &rec), ShouldBeNil)
				So(rec.Loader["file"], ShouldEqual, "bad.csv")
				So(rec.Loader["source"], ShouldContainSubstring, "loader.go")
			})
		})
	})
}
