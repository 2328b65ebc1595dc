package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const input = `Date,Visitors,Orders,Revenue,Segment
2024-03-01,100,10,500,Mobile
2024-03-02,200,20,1000,Desktop
`

func TestRun(t *testing.T) {
	convey.Convey("Given a CSV input", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "shop.csv")
		convey.So(os.WriteFile(in, []byte(input), 0o600), convey.ShouldBeNil)
		out := filepath.Join(dir, "out")
		var stdout, stderr bytes.Buffer

		convey.Convey("When exporting it quietly", func() {
			code := run(context.Background(), []string{"-out", out, "-quiet", "-segments", "Mobile", in}, &stdout, &stderr)

			convey.Convey("Then it succeeds and reports the output", func() {
				convey.So(code, convey.ShouldEqual, 0)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "OK    "+in)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "1 exported, 0 failed, 0 duplicates")
				entries, err := os.ReadDir(filepath.Join(out, "shop"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 3)
			})
		})

		convey.Convey("When the same file is listed twice", func() {
			code := run(context.Background(), []string{"-out", out, "-quiet", in, in}, &stdout, &stderr)

			convey.Convey("Then the repeat is skipped", func() {
				convey.So(code, convey.ShouldEqual, 0)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "SKIP  "+in)
			})
		})

		convey.Convey("When an input is missing", func() {
			code := run(context.Background(), []string{"-out", out, "-quiet", filepath.Join(dir, "nope.csv")}, &stdout, &stderr)

			convey.Convey("Then the exit code reports failure", func() {
				convey.So(code, convey.ShouldEqual, 1)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "FAIL")
			})
		})

		convey.Convey("When the dates are invalid", func() {
			code := run(context.Background(), []string{"-start", "03/01/2024", in}, &stdout, &stderr)

			convey.Convey("Then it is a usage error", func() {
				convey.So(code, convey.ShouldEqual, 2)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "invalid -start")
			})
		})

		convey.Convey("When no inputs are given", func() {
			code := run(context.Background(), nil, &stdout, &stderr)

			convey.Convey("Then usage is printed", func() {
				convey.So(code, convey.ShouldEqual, 2)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "Usage:")
			})
		})

		convey.Convey("When asking for help", func() {
			code := run(context.Background(), []string{"-h"}, &stdout, &stderr)

			convey.Convey("Then it exits cleanly", func() {
				convey.So(code, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestParseSelection(t *testing.T) {
	convey.Convey("Given flag values", t, func() {
		sel, err := parseSelection("2024-03-01", "2024-03-07", " Mobile, ,Desktop ")

		convey.Convey("Then they become a selection", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(sel.Start.Format("2006-01-02"), convey.ShouldEqual, "2024-03-01")
			convey.So(sel.End.Day(), convey.ShouldEqual, 7)
			convey.So(sel.Segments, convey.ShouldResemble, []string{"Mobile", "Desktop"})
		})

		convey.Convey("Then empty values leave the selection open", func() {
			sel, err := parseSelection("", "", "")
			convey.So(err, convey.ShouldBeNil)
			convey.So(sel.Start.IsZero(), convey.ShouldBeTrue)
			convey.So(sel.Segments, convey.ShouldBeNil)
		})
	})
}
