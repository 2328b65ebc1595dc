// Package kpi reduces a filtered Row Set to the KPI Summary, including the
// comparison against the preceding window of equal length.
package kpi

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/quickshop/internal/domain/filter"
	"github.com/okian/quickshop/internal/domain/model"
)

// moneyPlaces is the rounding applied to derived money values.
const moneyPlaces = 2

type totals struct {
	rows     int
	visitors int64
	orders   int64
	revenue  decimal.Decimal
}

func sum(rows model.Rows) totals {
	t := totals{rows: len(rows), revenue: decimal.Zero}
	for _, r := range rows {
		t.visitors = AddCount(t.visitors, r.Visitors)
		t.orders = AddCount(t.orders, r.Orders)
		t.revenue = t.revenue.Add(r.Revenue)
	}
	return t
}

// AddCount adds two non-negative counts, saturating at math.MaxInt64.
func AddCount(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// ConversionRate is orders / visitors, exactly 0 when visitors is 0.
func ConversionRate(orders, visitors int64) float64 {
	if visitors == 0 {
		return 0
	}
	return float64(orders) / float64(visitors)
}

func (t totals) conversion() float64 {
	return ConversionRate(t.orders, t.visitors)
}

// Compute builds the Summary of filtered, which must be filter.Apply(all, sel).
// Open bounds of sel are closed with the dates of filtered before the
// comparison window [Start-N, Start-1] is taken from all, N being the
// number of days in the window. The comparison is nil when filtered is
// empty or that window holds no rows.
func Compute(all, filtered model.Rows, sel model.Selection) model.Summary {
	win := sel
	if first, last, ok := filtered.Span(); ok {
		if win.Start.IsZero() {
			win.Start = first
		}
		if win.End.IsZero() {
			win.End = last
		}
	}

	cur := sum(filtered)
	s := model.Summary{
		Start:           win.Start,
		End:             win.End,
		Rows:            cur.rows,
		Visitors:        cur.visitors,
		Orders:          cur.orders,
		Revenue:         cur.revenue,
		ConversionRate:  cur.conversion(),
		AvgOrderValue:   decimal.Zero,
		AvgDailyRevenue: decimal.Zero,
	}
	if cur.orders > 0 {
		s.AvgOrderValue = cur.revenue.Div(decimal.NewFromInt(cur.orders)).Round(moneyPlaces)
	}
	if cur.rows > 0 {
		n := float64(cur.rows)
		s.AvgDailyVisitors = float64(cur.visitors) / n
		s.AvgDailyOrders = float64(cur.orders) / n
		s.AvgDailyRevenue = cur.revenue.Div(decimal.NewFromInt(int64(cur.rows))).Round(moneyPlaces)
	}

	if !win.Bounded() {
		return s
	}
	s.Days = model.DaysInclusive(win.Start, win.End)
	if s.Days == 0 || cur.rows == 0 {
		return s
	}

	prevSel := win.Shift(-s.Days)
	prev := sum(filter.Apply(all, prevSel))
	if prev.rows == 0 {
		return s
	}
	s.Comparison = &model.Comparison{
		Start:          prevSel.Start,
		End:            prevSel.End,
		Rows:           prev.rows,
		Visitors:       deltaInt(cur.visitors, prev.visitors),
		Orders:         deltaInt(cur.orders, prev.orders),
		Revenue:        deltaDecimal(cur.revenue, prev.revenue),
		ConversionRate: deltaFloat(cur.conversion(), prev.conversion()),
	}
	return s
}

func deltaInt(cur, prev int64) model.Delta {
	d := model.Delta{Previous: float64(prev), Change: float64(cur - prev)}
	if prev != 0 {
		d.Percent = float64(cur-prev) / float64(prev)
	}
	return d
}

func deltaDecimal(cur, prev decimal.Decimal) model.Delta {
	change := cur.Sub(prev)
	d := model.Delta{Previous: prev.InexactFloat64(), Change: change.InexactFloat64()}
	if !prev.IsZero() {
		d.Percent = change.Div(prev).InexactFloat64()
	}
	return d
}

func deltaFloat(cur, prev float64) model.Delta {
	d := model.Delta{Previous: prev, Change: cur - prev}
	if prev != 0 {
		d.Percent = (cur - prev) / prev
	}
	return d
}
