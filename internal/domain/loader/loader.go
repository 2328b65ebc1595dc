package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/pkg/logger"
	"github.com/okian/quickshop/pkg/metrics"
)

// cancelCheckEvery is how many records are read between context checks.
const cancelCheckEvery = 1024

// dateLayouts are tried in order; the time of day is discarded.
var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Loader turns CSV bytes into a Dataset.
type Loader struct {
	schema    Schema
	maxErrors int
	now       func() time.Time
	logger    logger.Logger
}

// New returns a Loader for DefaultSchema.
func New(opts ...Option) *Loader {
	l := &Loader{
		schema:    DefaultSchema,
		maxErrors: defaultMaxErrors,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("loader")
	}
	return l
}

// Load reads r fully. A missing required column yields a *SchemaError and
// malformed CSV an error wrapping ErrParse; in both cases no Dataset is
// returned. Records whose values cannot be coerced are dropped and
// reported in Dataset.Errors.
func (l *Loader) Load(ctx context.Context, r io.Reader, source string) (*model.Dataset, error) {
	start := l.now()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		metrics.RecordSchemaError()
		return nil, &SchemaError{Missing: l.schema.Names(), Required: l.schema.Names()}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	idx, err := l.schema.Resolve(header)
	if err != nil {
		metrics.RecordSchemaError()
		l.logger.Warn(ctx, "schema mismatch", logger.String("file", source), logger.Error(err))
		return nil, err
	}

	ds := &model.Dataset{Source: source, Rows: make(model.Rows, 0, 64)}
	for {
		if ds.Records%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		ds.Records++

		line, _ := cr.FieldPos(0)
		row, cerr := l.coerce(rec, idx, line)
		if cerr != nil {
			ds.Dropped++
			metrics.RecordRowDropped(cerr.Column)
			if len(ds.Errors) < l.maxErrors {
				ds.Errors = append(ds.Errors, *cerr)
			}
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	ds.LoadedAt = l.now()
	metrics.AddRowsLoaded(len(ds.Rows))
	metrics.RecordLoadLatency(float64(ds.LoadedAt.Sub(start).Microseconds()) / 1000)
	l.logger.Debug(ctx, "csv loaded",
		logger.String("file", source),
		logger.Int("records", ds.Records),
		logger.Int("rows", len(ds.Rows)),
		logger.Int("dropped", ds.Dropped))
	return ds, nil
}

// LoadFile opens path and loads it, using the base name as the source.
func (l *Loader) LoadFile(ctx context.Context, path string) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.Load(ctx, f, filepath.Base(path))
}

// coerce converts one record. The first failing column is reported.
func (l *Loader) coerce(rec []string, idx []int, line int) (model.Row, *model.RowCoercionError) {
	var row model.Row
	for i, col := range l.schema {
		fail := func(value, reason string) *model.RowCoercionError {
			return &model.RowCoercionError{Line: line, Column: col.Name, Value: value, Reason: reason}
		}
		if idx[i] >= len(rec) {
			return row, fail("", "value missing")
		}
		raw := strings.TrimSpace(rec[idx[i]])

		switch col.Kind {
		case KindDate:
			t, ok := parseDate(raw)
			if !ok {
				return row, fail(raw, "not a date")
			}
			assignDate(&row, col.Name, t)
		case KindCount:
			n, reason := parseCount(raw)
			if reason != "" {
				return row, fail(raw, reason)
			}
			assignCount(&row, col.Name, n)
		case KindMoney:
			d, reason := parseMoney(raw)
			if reason != "" {
				return row, fail(raw, reason)
			}
			assignMoney(&row, col.Name, d)
		case KindLabel:
			if raw == "" {
				return row, fail(raw, "blank")
			}
			assignLabel(&row, col.Name, raw)
		}
	}
	return row, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), true
		}
	}
	return time.Time{}, false
}

// parseCount accepts integers, including integral decimals such as "12.0".
func parseCount(s string) (int64, string) {
	if s == "" {
		return 0, "blank"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, "not a number"
	}
	if !d.IsInteger() {
		return 0, "not an integer"
	}
	if d.IsNegative() {
		return 0, "negative"
	}
	if !d.BigInt().IsInt64() {
		return 0, "out of range"
	}
	return d.IntPart(), ""
}

func parseMoney(s string) (decimal.Decimal, string) {
	if s == "" {
		return decimal.Zero, "blank"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, "not a number"
	}
	if d.IsNegative() {
		return decimal.Zero, "negative"
	}
	return d, ""
}

func assignDate(r *model.Row, name string, t time.Time) {
	if name == model.ColDate {
		r.Date = t
	}
}

func assignCount(r *model.Row, name string, n int64) {
	switch name {
	case model.ColVisitors:
		r.Visitors = n
	case model.ColOrders:
		r.Orders = n
	}
}

func assignMoney(r *model.Row, name string, d decimal.Decimal) {
	if name == model.ColRevenue {
		r.Revenue = d
	}
}

func assignLabel(r *model.Row, name, s string) {
	if name == model.ColSegment {
		r.Segment = s
	}
}
