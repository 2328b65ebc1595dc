// Package filter narrows a Row Set by date range and segment.
package filter

import (
	"github.com/okian/quickshop/internal/domain/model"
)

// Apply returns the rows whose date lies in [sel.Start, sel.End] and whose
// segment is selected. rows is not modified; the result never aliases it.
func Apply(rows model.Rows, sel model.Selection) model.Rows {
	out := make(model.Rows, 0, len(rows))
	for _, r := range rows {
		if sel.Contains(r.Date) && sel.Matches(r.Segment) {
			out = append(out, r)
		}
	}
	return out
}

// Segments lists the distinct segments present in rows, ascending.
func Segments(rows model.Rows) []string {
	return rows.Segments()
}

// DefaultSelection covers the full date span and every segment in rows.
// For an empty Row Set both bounds stay open.
func DefaultSelection(rows model.Rows) model.Selection {
	sel := model.Selection{Segments: Segments(rows)}
	if first, last, ok := rows.Span(); ok {
		sel.Start, sel.End = first, last
	}
	return sel
}

// SelectAll keeps the date range and selects every segment in rows.
func SelectAll(rows model.Rows, sel model.Selection) model.Selection {
	sel.Segments = Segments(rows)
	return sel
}

// ClearAll keeps the date range and clears the segment choice, which the
// engine treats as all segments.
func ClearAll(sel model.Selection) model.Selection {
	sel.Segments = []string{}
	return sel
}

// Normalize snaps both bounds to calendar dates, swaps a reversed range and
// removes duplicate or blank segment labels while keeping their order.
func Normalize(sel model.Selection) model.Selection {
	out := model.Selection{}
	if !sel.Start.IsZero() {
		out.Start = model.Day(sel.Start)
	}
	if !sel.End.IsZero() {
		out.End = model.Day(sel.End)
	}
	if out.Bounded() && out.End.Before(out.Start) {
		out.Start, out.End = out.End, out.Start
	}
	seen := make(map[string]struct{}, len(sel.Segments))
	out.Segments = make([]string, 0, len(sel.Segments))
	for _, s := range sel.Segments {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out.Segments = append(out.Segments, s)
	}
	return out
}
