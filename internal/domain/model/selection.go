package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Selection is the active date range and segment subset.
//
// Start and End are inclusive calendar dates; a zero value leaves that side
// unbounded. An empty Segments slice selects every segment.
type Selection struct {
	Start    time.Time
	End      time.Time
	Segments []string
}

type selectionJSON struct {
	Start    string   `json:"start,omitempty"`
	End      string   `json:"end,omitempty"`
	Segments []string `json:"segments"`
}

// MarshalJSON renders dates as YYYY-MM-DD and omits open bounds.
func (s Selection) MarshalJSON() ([]byte, error) {
	out := selectionJSON{Segments: s.Segments}
	if out.Segments == nil {
		out.Segments = []string{}
	}
	if !s.Start.IsZero() {
		out.Start = s.Start.Format(DateLayout)
	}
	if !s.End.IsZero() {
		out.End = s.End.Format(DateLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts YYYY-MM-DD dates; empty strings leave a bound open.
func (s *Selection) UnmarshalJSON(b []byte) error {
	var in selectionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	var out Selection
	if in.Start != "" {
		t, err := ParseDay(in.Start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		out.Start = t
	}
	if in.End != "" {
		t, err := ParseDay(in.End)
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		out.End = t
	}
	out.Segments = in.Segments
	*s = out
	return nil
}

// Contains reports whether date falls inside the inclusive range.
func (s Selection) Contains(date time.Time) bool {
	if !s.Start.IsZero() && date.Before(s.Start) {
		return false
	}
	if !s.End.IsZero() && date.After(s.End) {
		return false
	}
	return true
}

// Matches reports whether segment is selected. An empty set matches all.
func (s Selection) Matches(segment string) bool {
	return len(s.Segments) == 0 || slices.Contains(s.Segments, segment)
}

// Shift returns the selection moved by days, keeping the segments.
func (s Selection) Shift(days int) Selection {
	out := Selection{Segments: s.Segments}
	if !s.Start.IsZero() {
		out.Start = s.Start.AddDate(0, 0, days)
	}
	if !s.End.IsZero() {
		out.End = s.End.AddDate(0, 0, days)
	}
	return out
}

// Bounded reports whether both ends of the range are set.
func (s Selection) Bounded() bool {
	return !s.Start.IsZero() && !s.End.IsZero()
}
