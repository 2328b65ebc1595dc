// Command export writes the dashboard tables for one or more CSV files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/quickshop/internal/batch"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/pkg/logger"
)

const usage = `QuickShop batch export
======================

Writes dashboard_data, weekly_summary and segment_analysis CSVs for every
input file into its own directory under -out.

Usage:
  export [options] file.csv [file.csv ...]

Options:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes the batch and prints a summary. It returns the
// process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		outDir   = fs.String("out", "exports", "Output directory")
		start    = fs.String("start", "", "First date to include (YYYY-MM-DD)")
		end      = fs.String("end", "", "Last date to include (YYYY-MM-DD)")
		segments = fs.String("segments", "", "Comma separated segments to include (default all)")
		workers  = fs.Int("workers", runtime.NumCPU(), "Number of concurrent exports")
		workbook = fs.Bool("xlsx", false, "Also write an Excel workbook per input")
		quiet    = fs.Bool("quiet", false, "Hide the progress bar")
		logLevel = fs.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if err := logger.InitWith(stderr, logger.FormatText); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return 1
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	sel, err := parseSelection(*start, *end, *segments)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg := &batch.Config{
		Inputs:    fs.Args(),
		OutDir:    *outDir,
		Selection: sel,
		Workers:   *workers,
		Workbook:  *workbook,
	}
	if !*quiet {
		cfg.Progress = stderr
	}

	rep, err := batch.NewRunner().Run(ctx, cfg)
	if rep != nil {
		printReport(stdout, rep)
	}
	if err != nil {
		fmt.Fprintln(stderr, "export failed:", err)
		return 1
	}
	if rep.Failed > 0 {
		return 1
	}
	return 0
}

func parseSelection(start, end, segments string) (model.Selection, error) {
	var sel model.Selection
	if start != "" {
		t, err := model.ParseDay(start)
		if err != nil {
			return sel, fmt.Errorf("invalid -start: %w", err)
		}
		sel.Start = t
	}
	if end != "" {
		t, err := model.ParseDay(end)
		if err != nil {
			return sel, fmt.Errorf("invalid -end: %w", err)
		}
		sel.End = t
	}
	for _, s := range strings.Split(segments, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sel.Segments = append(sel.Segments, s)
		}
	}
	return sel, nil
}

func printReport(w io.Writer, rep *batch.Report) {
	for _, r := range rep.Results {
		switch {
		case r.Duplicate:
			fmt.Fprintf(w, "SKIP  %s (duplicate)\n", r.Input)
		case r.Err != nil:
			fmt.Fprintf(w, "FAIL  %s: %v\n", r.Input, r.Err)
		default:
			fmt.Fprintf(w, "OK    %s -> %s (%d rows, %d dropped)\n", r.Input, r.OutDir, r.Rows, r.Dropped)
		}
	}
	fmt.Fprintf(w, "\n%d exported, %d failed, %d duplicates in %s\n",
		rep.Exported, rep.Failed, rep.Duplicates, rep.Duration.Round(time.Millisecond))
}
