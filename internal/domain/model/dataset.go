package model

import (
	"fmt"
	"time"
)

// RowCoercionError describes one data record the loader dropped.
type RowCoercionError struct {
	Line   int    `json:"line"` // 1-based line in the source, header is line 1
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e *RowCoercionError) Error() string {
	return fmt.Sprintf("line %d: column %s: %q: %s", e.Line, e.Column, e.Value, e.Reason)
}

// Dataset is a loaded Row Set plus its provenance. A Dataset is never
// mutated after it is returned by the loader.
type Dataset struct {
	Rows     Rows
	Source   string
	LoadedAt time.Time
	// Records is the number of data records read, excluding the header.
	Records int
	// Dropped is the number of records rejected during coercion.
	Dropped int
	// Errors holds the coercion failures, at most one per dropped record.
	Errors []RowCoercionError
}

// Segments returns the distinct segment labels in ascending order.
func (d *Dataset) Segments() []string {
	return d.Rows.Segments()
}

// Info is the one-line description of a dataset shown next to the dashboard.
type Info struct {
	Source   string   `json:"source"`
	Rows     int      `json:"rows"`
	Records  int      `json:"records"`
	Dropped  int      `json:"dropped"`
	Days     int      `json:"days"`
	First    string   `json:"first,omitempty"`
	Last     string   `json:"last,omitempty"`
	Segments []string `json:"segments"`
}

// Describe summarizes d for display.
func (d *Dataset) Describe() Info {
	info := Info{
		Source:   d.Source,
		Rows:     len(d.Rows),
		Records:  d.Records,
		Dropped:  d.Dropped,
		Segments: d.Segments(),
	}
	if first, last, ok := d.Rows.Span(); ok {
		info.Days = DaysInclusive(first, last)
		info.First = first.Format(DateLayout)
		info.Last = last.Format(DateLayout)
	}
	return info
}
