// Package breakdown groups a filtered Row Set by segment.
package breakdown

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/okian/quickshop/internal/domain/kpi"
	"github.com/okian/quickshop/internal/domain/model"
)

// Compute returns one aggregate per segment present in rows, ordered by
// revenue descending and then segment ascending. RevenueShare is the
// segment's fraction of total revenue, 0 for every segment when the total
// is 0.
func Compute(rows model.Rows) []model.SegmentAggregate {
	bySegment := make(map[string]*model.SegmentAggregate)
	total := decimal.Zero
	for _, r := range rows {
		agg, ok := bySegment[r.Segment]
		if !ok {
			agg = &model.SegmentAggregate{Segment: r.Segment, Revenue: decimal.Zero}
			bySegment[r.Segment] = agg
		}
		agg.Visitors = kpi.AddCount(agg.Visitors, r.Visitors)
		agg.Orders = kpi.AddCount(agg.Orders, r.Orders)
		agg.Revenue = agg.Revenue.Add(r.Revenue)
		total = total.Add(r.Revenue)
	}

	out := make([]model.SegmentAggregate, 0, len(bySegment))
	for _, agg := range bySegment {
		agg.ConversionRate = kpi.ConversionRate(agg.Orders, agg.Visitors)
		if !total.IsZero() {
			agg.RevenueShare = agg.Revenue.Div(total).InexactFloat64()
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}
