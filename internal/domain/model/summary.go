package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Delta compares a metric with its value in the comparison window.
type Delta struct {
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
	// Percent is Change / Previous as a fraction; 0 when Previous is 0.
	Percent float64 `json:"percent"`
}

// Comparison holds the previous equal-length window and the per-metric deltas.
type Comparison struct {
	Start          time.Time
	End            time.Time
	Rows           int
	Visitors       Delta
	Orders         Delta
	Revenue        Delta
	ConversionRate Delta
}

type comparisonJSON struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	Rows           int    `json:"rows"`
	Visitors       Delta  `json:"visitors"`
	Orders         Delta  `json:"orders"`
	Revenue        Delta  `json:"revenue"`
	ConversionRate Delta  `json:"conversion_rate"`
}

// MarshalJSON renders the window bounds as dates.
func (c Comparison) MarshalJSON() ([]byte, error) {
	return json.Marshal(comparisonJSON{
		Start:          c.Start.Format(DateLayout),
		End:            c.End.Format(DateLayout),
		Rows:           c.Rows,
		Visitors:       c.Visitors,
		Orders:         c.Orders,
		Revenue:        c.Revenue,
		ConversionRate: c.ConversionRate,
	})
}

// Summary is the KPI Summary for one filtered Row Set.
type Summary struct {
	Start          time.Time
	End            time.Time
	Days           int
	Rows           int
	Visitors       int64
	Orders         int64
	Revenue        decimal.Decimal
	ConversionRate float64 // Orders / Visitors; 0 when Visitors is 0
	AvgOrderValue  decimal.Decimal
	// Averages per filtered row, matching the per-day cards of the dashboard.
	AvgDailyVisitors float64
	AvgDailyOrders   float64
	AvgDailyRevenue  decimal.Decimal
	// Comparison is nil when the previous window holds no data.
	Comparison *Comparison
}

type summaryJSON struct {
	Start            string          `json:"start,omitempty"`
	End              string          `json:"end,omitempty"`
	Days             int             `json:"days"`
	Rows             int             `json:"rows"`
	Visitors         int64           `json:"visitors"`
	Orders           int64           `json:"orders"`
	Revenue          decimal.Decimal `json:"revenue"`
	ConversionRate   float64         `json:"conversion_rate"`
	AvgOrderValue    decimal.Decimal `json:"avg_order_value"`
	AvgDailyVisitors float64         `json:"avg_daily_visitors"`
	AvgDailyOrders   float64         `json:"avg_daily_orders"`
	AvgDailyRevenue  decimal.Decimal `json:"avg_daily_revenue"`
	Comparison       *Comparison     `json:"comparison"`
}

// MarshalJSON renders dates as YYYY-MM-DD; a missing comparison is null.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{
		Days:             s.Days,
		Rows:             s.Rows,
		Visitors:         s.Visitors,
		Orders:           s.Orders,
		Revenue:          s.Revenue,
		ConversionRate:   s.ConversionRate,
		AvgOrderValue:    s.AvgOrderValue,
		AvgDailyVisitors: s.AvgDailyVisitors,
		AvgDailyOrders:   s.AvgDailyOrders,
		AvgDailyRevenue:  s.AvgDailyRevenue,
		Comparison:       s.Comparison,
	}
	if !s.Start.IsZero() {
		out.Start = s.Start.Format(DateLayout)
	}
	if !s.End.IsZero() {
		out.End = s.End.Format(DateLayout)
	}
	return json.Marshal(out)
}

// SegmentAggregate is one row of the Segment Breakdown.
type SegmentAggregate struct {
	Segment        string          `json:"segment"`
	Visitors       int64           `json:"visitors"`
	Orders         int64           `json:"orders"`
	Revenue        decimal.Decimal `json:"revenue"`
	ConversionRate float64         `json:"conversion_rate"`
	RevenueShare   float64         `json:"revenue_share"`
}
