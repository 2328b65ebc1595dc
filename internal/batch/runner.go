// Package batch exports dashboard tables for many CSV files at once.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/okian/quickshop/internal/adapters/mq/queue"
	"github.com/okian/quickshop/internal/adapters/mq/worker"
	"github.com/okian/quickshop/internal/adapters/xlsx"
	"github.com/okian/quickshop/internal/domain/chart"
	"github.com/okian/quickshop/internal/domain/dedupe"
	"github.com/okian/quickshop/internal/domain/export"
	"github.com/okian/quickshop/internal/domain/loader"
	"github.com/okian/quickshop/internal/domain/pipeline"
	"github.com/okian/quickshop/internal/domain/session"
	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

const directoryPermission = 0o750

// Runner executes batch exports. Inputs already exported by the same
// Runner, matched by content, are skipped.
type Runner struct {
	loader *loader.Loader
	seen   dedupe.Deduper
	now    func() time.Time
	logger logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("batch")
	}
	if r.seen == nil {
		r.seen = dedupe.NewInMemoryDeduper()
	}
	r.loader = loader.New(loader.WithClock(r.now), loader.WithLogger(r.logger))
	return r
}

type job struct {
	index       int
	input       string
	outDir      string
	fingerprint string
}

// Run exports every input in cfg. Per-input failures are reported in the
// Report; the returned error covers setup problems and cancellation.
func (r *Runner) Run(ctx context.Context, cfg *Config) (*Report, error) {
	if len(cfg.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	if strings.TrimSpace(cfg.OutDir) == "" {
		return nil, ErrNoOutDir
	}
	if err := os.MkdirAll(cfg.OutDir, directoryPermission); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.OutDir, err)
	}

	start := time.Now()
	runID := uuid.NewString()
	log := r.logger.With(logger.String("run", runID))
	log.Info(ctx, "starting batch export",
		logger.Int("inputs", len(cfg.Inputs)),
		logger.String("outDir", cfg.OutDir),
		logger.Int("workers", cfg.Workers),
		logger.Bool("workbook", cfg.Workbook),
	)

	report := &Report{Results: make([]Result, len(cfg.Inputs))}
	bar := newBar(cfg.Progress, len(cfg.Inputs))

	q := queue.NewInMemoryQueue[job](queue.WithCapacity(len(cfg.Inputs)))
	pool := worker.NewPool[job](cfg.Workers, q, worker.HandlerFunc[job](func(ctx context.Context, j job) error {
		res := &report.Results[j.index]
		err := r.export(ctx, cfg, j, res)
		if err != nil {
			res.Err = err
			r.seen.Unrecord(ctx, j.fingerprint)
		}
		_ = bar.Add(1)
		return err
	}))

	dirs := outDirs(cfg.OutDir, cfg.Inputs)
	for i, in := range cfg.Inputs {
		report.Results[i] = Result{Input: in}
		fp, err := dedupe.FingerprintFile(in)
		if err != nil {
			report.Results[i].Err = err
			_ = bar.Add(1)
			continue
		}
		if r.seen.SeenAndRecord(ctx, fp) {
			report.Results[i].Duplicate = true
			report.Results[i].Err = ErrDuplicate
			metrics.RecordDuplicateInput()
			log.Info(ctx, "skipping duplicate input", logger.String("input", in))
			_ = bar.Add(1)
			continue
		}
		if err := q.Enqueue(ctx, job{index: i, input: in, outDir: dirs[i], fingerprint: fp}); err != nil {
			r.seen.Unrecord(ctx, fp)
			report.Results[i].Err = err
			_ = bar.Add(1)
		}
	}

	pool.Start(ctx)
	if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	_ = bar.Finish()

	for _, res := range report.Results {
		switch {
		case res.Duplicate:
			report.Duplicates++
		case res.Err != nil:
			report.Failed++
		default:
			report.Exported++
		}
	}
	report.Duration = time.Since(start)

	log.Info(ctx, "batch export finished",
		logger.Int("exported", report.Exported),
		logger.Int("failed", report.Failed),
		logger.Int("duplicates", report.Duplicates),
		logger.Duration("took", report.Duration),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// export loads one input, runs the pipeline and writes its tables.
func (r *Runner) export(ctx context.Context, cfg *Config, j job, res *Result) error {
	started := time.Now()
	result := "ok"
	defer func() {
		metrics.RecordBatchJob(result, float64(time.Since(started).Microseconds())/1000)
	}()

	ds, err := r.loader.LoadFile(ctx, j.input)
	if err != nil {
		result = "load_error"
		return fmt.Errorf("%s: %w", j.input, err)
	}
	res.Rows, res.Dropped = len(ds.Rows), ds.Dropped
	if len(ds.Rows) == 0 {
		result = "no_rows"
		return fmt.Errorf("%s: %w", j.input, ErrNoRows)
	}

	now := r.now()
	sess := session.New("batch", nil, now).WithUpload(ds, now)
	if !isZero(cfg) {
		sess = sess.WithSelection(cfg.Selection, now)
	}
	out, err := pipeline.Run(ctx, sess, chart.MetricRevenue)
	if err != nil {
		result = "pipeline_error"
		return fmt.Errorf("%s: %w", j.input, err)
	}

	if err := os.MkdirAll(j.outDir, directoryPermission); err != nil {
		result = "write_error"
		return fmt.Errorf("create %s: %w", j.outDir, err)
	}
	res.OutDir = j.outDir

	for _, k := range export.Kinds {
		var buf bytes.Buffer
		if err := export.Write(&buf, k, out); err != nil {
			result = "write_error"
			return fmt.Errorf("%s: %s: %w", j.input, k, err)
		}
		path, err := writeFile(j.outDir, k.FileName(now), buf.Bytes())
		if err != nil {
			result = "write_error"
			return err
		}
		res.Files = append(res.Files, path)
		metrics.RecordExport(string(k), "csv", buf.Len())
	}

	if cfg.Workbook {
		var buf bytes.Buffer
		if err := xlsx.Write(&buf, out); err != nil {
			result = "write_error"
			return fmt.Errorf("%s: workbook: %w", j.input, err)
		}
		path, err := writeFile(j.outDir, xlsx.FileName(now), buf.Bytes())
		if err != nil {
			result = "write_error"
			return err
		}
		res.Files = append(res.Files, path)
		metrics.RecordExport("workbook", "xlsx", buf.Len())
	}

	if w := out.WarningMessages(); len(w) > 0 {
		r.logger.Warn(ctx, "export has warnings", logger.String("input", j.input), logger.Any("warnings", w))
	}
	return nil
}

func isZero(cfg *Config) bool {
	s := cfg.Selection
	return s.Start.IsZero() && s.End.IsZero() && len(s.Segments) == 0
}

func writeFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// outDirs names one subdirectory per input after its base name, suffixing
// repeats with -2, -3 and so on.
func outDirs(root string, inputs []string) []string {
	used := make(map[string]int, len(inputs))
	out := make([]string, len(inputs))
	for i, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		used[base]++
		name := base
		if n := used[base]; n > 1 {
			name = base + "-" + strconv.Itoa(n)
		}
		out[i] = filepath.Join(root, name)
	}
	return out
}

func newBar(w io.Writer, n int) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("exporting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)
}
