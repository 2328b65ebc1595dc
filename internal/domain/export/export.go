// Package export serializes the filtered rows, the KPI Summary and the
// Segment Breakdown as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/pipeline"
)

// ErrUnknownKind is returned by ParseKind.
var ErrUnknownKind = errors.New("unknown export kind")

// Kind names one exportable table.
type Kind string

// Exportable tables.
const (
	KindData     Kind = "data"
	KindSummary  Kind = "summary"
	KindSegments Kind = "segments"
)

// Kinds lists every table in workbook order.
var Kinds = []Kind{KindData, KindSummary, KindSegments}

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// FileName returns the download name for k on the given day, for example
// dashboard_data_20240131.csv.
func (k Kind) FileName(on time.Time) string {
	stamp := on.Format("20060102")
	switch k {
	case KindSummary:
		return "weekly_summary_" + stamp + ".csv"
	case KindSegments:
		return "segment_analysis_" + stamp + ".csv"
	default:
		return "dashboard_data_" + stamp + ".csv"
	}
}

// Headers of the three tables.
var (
	RowsHeader = []string{
		model.ColDate, model.ColVisitors, model.ColOrders, model.ColRevenue, model.ColSegment,
	}
	SummaryHeader = []string{
		"Start", "End", "Days", "Visitors", "Orders", "Revenue", "ConversionRate",
		"AvgOrderValue", "AvgDailyVisitors", "AvgDailyOrders", "AvgDailyRevenue",
		"PrevStart", "PrevEnd",
		"VisitorsDelta", "VisitorsDeltaPct", "OrdersDelta", "OrdersDeltaPct",
		"RevenueDelta", "RevenueDeltaPct", "ConversionRateDelta", "ConversionRateDeltaPct",
	}
	BreakdownHeader = []string{
		"Segment", "Visitors", "Orders", "Revenue", "ConversionRate", "RevenueShare",
	}
)

// Header returns the header for k.
func (k Kind) Header() []string {
	switch k {
	case KindSummary:
		return SummaryHeader
	case KindSegments:
		return BreakdownHeader
	default:
		return RowsHeader
	}
}

// Records returns the data records of k taken from res, without header.
func (k Kind) Records(res *pipeline.Result) [][]string {
	switch k {
	case KindSummary:
		return [][]string{SummaryRecord(res.Summary)}
	case KindSegments:
		out := make([][]string, len(res.Breakdown))
		for i, a := range res.Breakdown {
			out[i] = BreakdownRecord(a)
		}
		return out
	default:
		out := make([][]string, len(res.Rows))
		for i, r := range res.Rows {
			out[i] = RowRecord(r)
		}
		return out
	}
}

// Write writes table k of res to w.
func Write(w io.Writer, k Kind, res *pipeline.Result) error {
	return writeAll(w, k.Header(), k.Records(res))
}

// WriteRows writes the filtered Row Set.
func WriteRows(w io.Writer, rows model.Rows) error {
	return Write(w, KindData, &pipeline.Result{Rows: rows})
}

// WriteSummary writes the summary as a single record.
func WriteSummary(w io.Writer, s model.Summary) error {
	return Write(w, KindSummary, &pipeline.Result{Summary: s})
}

// WriteBreakdown writes one record per segment.
func WriteBreakdown(w io.Writer, aggs []model.SegmentAggregate) error {
	return Write(w, KindSegments, &pipeline.Result{Breakdown: aggs})
}

func writeAll(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// RowRecord formats r in RowsHeader order.
func RowRecord(r model.Row) []string {
	return []string{
		r.Date.Format(model.DateLayout),
		strconv.FormatInt(r.Visitors, 10),
		strconv.FormatInt(r.Orders, 10),
		r.Revenue.String(),
		r.Segment,
	}
}

// SummaryRecord formats s in SummaryHeader order. Comparison cells are
// empty when s has no comparison.
func SummaryRecord(s model.Summary) []string {
	rec := []string{
		date(s.Start),
		date(s.End),
		strconv.Itoa(s.Days),
		strconv.FormatInt(s.Visitors, 10),
		strconv.FormatInt(s.Orders, 10),
		s.Revenue.String(),
		float(s.ConversionRate),
		s.AvgOrderValue.String(),
		float(s.AvgDailyVisitors),
		float(s.AvgDailyOrders),
		s.AvgDailyRevenue.String(),
	}
	c := s.Comparison
	if c == nil {
		return append(rec, make([]string, len(SummaryHeader)-len(rec))...)
	}
	return append(rec,
		date(c.Start),
		date(c.End),
		float(c.Visitors.Change), float(c.Visitors.Percent),
		float(c.Orders.Change), float(c.Orders.Percent),
		float(c.Revenue.Change), float(c.Revenue.Percent),
		float(c.ConversionRate.Change), float(c.ConversionRate.Percent),
	)
}

// BreakdownRecord formats a in BreakdownHeader order.
func BreakdownRecord(a model.SegmentAggregate) []string {
	return []string{
		a.Segment,
		strconv.FormatInt(a.Visitors, 10),
		strconv.FormatInt(a.Orders, 10),
		a.Revenue.String(),
		float(a.ConversionRate),
		float(a.RevenueShare),
	}
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func float(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
