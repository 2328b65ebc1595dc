// Package chart shapes a filtered Row Set into the tables the dashboard
// charts render.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/quickshop/internal/domain/model"
)

// ErrUnknownMetric is returned by ParseMetric.
var ErrUnknownMetric = errors.New("unknown metric")

// Metric is a column the trend chart can plot.
type Metric string

// Plottable metrics.
const (
	MetricRevenue  Metric = model.ColRevenue
	MetricVisitors Metric = model.ColVisitors
	MetricOrders   Metric = model.ColOrders
)

// Metrics lists the plottable metrics in menu order.
var Metrics = []Metric{MetricRevenue, MetricVisitors, MetricOrders}

// ParseMetric matches s case-insensitively. Empty means Revenue.
func ParseMetric(s string) (Metric, error) {
	if strings.TrimSpace(s) == "" {
		return MetricRevenue, nil
	}
	for _, m := range Metrics {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

func (m Metric) value(r model.Row) float64 {
	switch m {
	case MetricVisitors:
		return float64(r.Visitors)
	case MetricOrders:
		return float64(r.Orders)
	default:
		return r.Revenue.InexactFloat64()
	}
}

// Point is one sample of a series.
type Point struct {
	Date  time.Time `json:"-"`
	Day   string    `json:"date"`
	Value float64   `json:"value"`
}

// Series is one segment's line in the trend chart.
type Series struct {
	Segment string  `json:"segment"`
	Points  []Point `json:"points"`
}

// Trend is the metric over time, one series per segment.
type Trend struct {
	Metric Metric   `json:"metric"`
	Series []Series `json:"series"`
}

// Slice is one wedge of the visitor distribution.
type Slice struct {
	Segment  string  `json:"segment"`
	Visitors int64   `json:"visitors"`
	Share    float64 `json:"share"`
}

// Bar is one segment's conversion rate.
type Bar struct {
	Segment        string  `json:"segment"`
	ConversionRate float64 `json:"conversion_rate"`
}

// BuildTrend sums metric per date and segment. Series are ordered by
// segment and points by date.
func BuildTrend(rows model.Rows, metric Metric) Trend {
	type key struct {
		segment string
		date    time.Time
	}
	sums := make(map[key]float64)
	for _, r := range rows {
		sums[key{r.Segment, r.Date}] += metric.value(r)
	}

	bySegment := make(map[string][]Point)
	for k, v := range sums {
		bySegment[k.segment] = append(bySegment[k.segment], Point{Date: k.date, Day: k.date.Format(model.DateLayout), Value: v})
	}

	out := Trend{Metric: metric, Series: make([]Series, 0, len(bySegment))}
	for _, seg := range rows.Segments() {
		pts := bySegment[seg]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
		out.Series = append(out.Series, Series{Segment: seg, Points: pts})
	}
	return out
}

// VisitorDistribution returns each segment's visitors and share of the
// total, largest first.
func VisitorDistribution(aggs []model.SegmentAggregate) []Slice {
	var total int64
	for _, a := range aggs {
		total += a.Visitors
	}
	out := make([]Slice, 0, len(aggs))
	for _, a := range aggs {
		s := Slice{Segment: a.Segment, Visitors: a.Visitors}
		if total > 0 {
			s.Share = float64(a.Visitors) / float64(total)
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Visitors != out[j].Visitors {
			return out[i].Visitors > out[j].Visitors
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}

// ConversionBySegment keeps the breakdown order.
func ConversionBySegment(aggs []model.SegmentAggregate) []Bar {
	out := make([]Bar, len(aggs))
	for i, a := range aggs {
		out[i] = Bar{Segment: a.Segment, ConversionRate: a.ConversionRate}
	}
	return out
}
