package batch_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quickshop/internal/batch"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const goodCSV = `Date,Visitors,Orders,Revenue,Segment
2024-03-01,100,10,500,Mobile
2024-03-02,200,20,1000,Desktop
2024-03-03,300,30,1500,Mobile
`

var fixed = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunner(t *testing.T) {
	Convey("Given a good input, a duplicate of it and a broken input", t, func() {
		in := t.TempDir()
		out := filepath.Join(t.TempDir(), "exports")
		good := writeInput(t, in, "march.csv", goodCSV)
		dup := writeInput(t, in, "march-copy.csv", goodCSV)
		bad := writeInput(t, in, "bad.csv", "Date,Visitors\n2024-03-01,1\n")

		var progress bytes.Buffer
		r := batch.NewRunner(batch.WithClock(func() time.Time { return fixed }))

		Convey("When running with the workbook enabled", func() {
			rep, err := r.Run(context.Background(), &batch.Config{
				Inputs:   []string{good, dup, bad},
				OutDir:   out,
				Workers:  2,
				Workbook: true,
				Progress: &progress,
			})

			Convey("Then each input gets its own outcome", func() {
				So(err, ShouldBeNil)
				So(rep.Exported, ShouldEqual, 1)
				So(rep.Duplicates, ShouldEqual, 1)
				So(rep.Failed, ShouldEqual, 1)
				So(progress.Len(), ShouldBeGreaterThan, 0)

				So(rep.Results[0].Err, ShouldBeNil)
				So(rep.Results[0].Rows, ShouldEqual, 3)
				So(rep.Results[1].Duplicate, ShouldBeTrue)
				So(errors.Is(rep.Results[1].Err, batch.ErrDuplicate), ShouldBeTrue)
				So(rep.Results[2].Err, ShouldNotBeNil)
				So(strings.ToLower(rep.Results[2].Err.Error()), ShouldContainSubstring, "missing required column")
			})

			Convey("Then the three tables and the workbook are written", func() {
				dir := filepath.Join(out, "march")
				So(rep.Results[0].OutDir, ShouldEqual, dir)
				So(rep.Results[0].Files, ShouldHaveLength, 4)
				for _, name := range []string{
					"dashboard_data_20240315.csv",
					"weekly_summary_20240315.csv",
					"segment_analysis_20240315.csv",
					"dashboard_export_20240315.xlsx",
				} {
					_, err := os.Stat(filepath.Join(dir, name))
					So(err, ShouldBeNil)
				}
			})

			Convey("Then running the same input again is skipped", func() {
				again, err := r.Run(context.Background(), &batch.Config{Inputs: []string{good}, OutDir: out})
				So(err, ShouldBeNil)
				So(again.Duplicates, ShouldEqual, 1)
				So(again.Exported, ShouldEqual, 0)
			})

			Convey("Then a failed input can be retried once fixed", func() {
				So(os.WriteFile(bad, []byte(strings.ReplaceAll(goodCSV, "100", "101")), 0o600), ShouldBeNil)
				again, err := r.Run(context.Background(), &batch.Config{Inputs: []string{bad}, OutDir: out})
				So(err, ShouldBeNil)
				So(again.Exported, ShouldEqual, 1)
			})
		})

		Convey("When running with a segment selection", func() {
			rep, err := r.Run(context.Background(), &batch.Config{
				Inputs:    []string{good},
				OutDir:    out,
				Selection: model.Selection{Segments: []string{"Mobile"}},
			})
			So(err, ShouldBeNil)
			So(rep.Exported, ShouldEqual, 1)

			data, err := os.ReadFile(filepath.Join(out, "march", "dashboard_data_20240315.csv"))
			So(err, ShouldBeNil)

			Convey("Then only the selected segment is exported", func() {
				So(string(data), ShouldContainSubstring, "Mobile")
				So(string(data), ShouldNotContainSubstring, "Desktop")
				So(rep.Results[0].Files, ShouldHaveLength, 3)
			})
		})
	})

	Convey("Given inputs sharing a base name", t, func() {
		a := writeInput(t, t.TempDir(), "sales.csv", goodCSV)
		b := writeInput(t, t.TempDir(), "sales.csv", strings.ReplaceAll(goodCSV, "500", "600"))
		out := t.TempDir()

		rep, err := batch.NewRunner().Run(context.Background(), &batch.Config{Inputs: []string{a, b}, OutDir: out})

		Convey("Then their output directories do not collide", func() {
			So(err, ShouldBeNil)
			So(rep.Exported, ShouldEqual, 2)
			So(rep.Results[0].OutDir, ShouldEqual, filepath.Join(out, "sales"))
			So(rep.Results[1].OutDir, ShouldEqual, filepath.Join(out, "sales-2"))
		})
	})

	Convey("Given invalid run settings", t, func() {
		r := batch.NewRunner()

		Convey("Then missing inputs or output directory are rejected", func() {
			_, err := r.Run(context.Background(), &batch.Config{OutDir: t.TempDir()})
			So(errors.Is(err, batch.ErrNoInputs), ShouldBeTrue)

			_, err = r.Run(context.Background(), &batch.Config{Inputs: []string{"x.csv"}})
			So(errors.Is(err, batch.ErrNoOutDir), ShouldBeTrue)
		})

		Convey("Then a missing input file fails only that input", func() {
			rep, err := r.Run(context.Background(), &batch.Config{
				Inputs: []string{filepath.Join(t.TempDir(), "nope.csv")},
				OutDir: t.TempDir(),
			})
			So(err, ShouldBeNil)
			So(rep.Failed, ShouldEqual, 1)
		})
	})
}
