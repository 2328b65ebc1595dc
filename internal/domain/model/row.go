// Package model contains the dashboard's domain types passed between layers.
package model

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const secondsPerDay = 24 * 60 * 60

// DateLayout is the calendar date format used on the wire and in CSV files.
const DateLayout = "2006-01-02"

// Column names of the source CSV, in canonical order.
const (
	ColDate     = "Date"
	ColVisitors = "Visitors"
	ColOrders   = "Orders"
	ColRevenue  = "Revenue"
	ColSegment  = "Segment"
)

// Row is one daily observation for a segment.
type Row struct {
	Date     time.Time       // calendar date, UTC midnight
	Visitors int64           // >= 0
	Orders   int64           // >= 0; not required to be <= Visitors
	Revenue  decimal.Decimal // >= 0
	Segment  string          // non-empty label, e.g. "Mobile"
}

type rowJSON struct {
	Date     string          `json:"date"`
	Visitors int64           `json:"visitors"`
	Orders   int64           `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	Segment  string          `json:"segment"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		Date:     r.Date.Format(DateLayout),
		Visitors: r.Visitors,
		Orders:   r.Orders,
		Revenue:  r.Revenue,
		Segment:  r.Segment,
	})
}

// Rows is a Row Set. Stages never modify a Rows they receive; they return
// new slices instead.
type Rows []Row

// Span returns the earliest and latest dates. ok is false for an empty set.
func (rs Rows) Span() (first, last time.Time, ok bool) {
	for i, r := range rs {
		if i == 0 || r.Date.Before(first) {
			first = r.Date
		}
		if i == 0 || r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, len(rs) > 0
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysInclusive counts calendar days in [start, end]. It returns 0 when end
// precedes start.
func DaysInclusive(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int((Day(end).Unix()-Day(start).Unix())/secondsPerDay) + 1
}

// Segments returns the distinct segment labels in ascending order.
func (rs Rows) Segments() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rs {
		if _, ok := seen[r.Segment]; ok {
			continue
		}
		seen[r.Segment] = struct{}{}
		out = append(out, r.Segment)
	}
	sort.Strings(out)
	return out
}
