// Package pipeline runs Filter -> {KPI, Breakdown, Charts} for a session.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/okian/quickshop/internal/domain/breakdown"
	"github.com/okian/quickshop/internal/domain/chart"
	"github.com/okian/quickshop/internal/domain/filter"
	"github.com/okian/quickshop/internal/domain/kpi"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/session"
	"github.com/okian/quickshop/pkg/metrics"
)

// Result is everything derived from one session state.
type Result struct {
	Selection    model.Selection
	Rows         model.Rows
	Summary      model.Summary
	Breakdown    []model.SegmentAggregate
	Trend        chart.Trend
	Distribution []chart.Slice
	Conversion   []chart.Bar
	Warnings     []error
}

// View pairs a session's description with its Result.
type View struct {
	Session session.Info
	Result  *Result
}

// Empty reports whether the selection matched no rows.
func (r *Result) Empty() bool {
	var w *EmptyResultWarning
	for _, err := range r.Warnings {
		if errors.As(err, &w) {
			return true
		}
	}
	return false
}

// WarningMessages returns the warnings as display strings.
func (r *Result) WarningMessages() []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Error()
	}
	return out
}

// Run evaluates the session's selection over its dataset.
func Run(ctx context.Context, sess *session.Session, metric chart.Metric) (*Result, error) {
	if sess == nil || sess.Dataset == nil {
		return nil, ErrNoData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	all := sess.Rows()
	sel := sess.Selection
	filtered := filter.Apply(all, sel)
	aggs := breakdown.Compute(filtered)

	res := &Result{
		Selection:    sel,
		Rows:         filtered,
		Summary:      kpi.Compute(all, filtered, sel),
		Breakdown:    aggs,
		Trend:        chart.BuildTrend(filtered, metric),
		Distribution: chart.VisitorDistribution(aggs),
		Conversion:   chart.ConversionBySegment(aggs),
		Warnings:     []error{},
	}
	if len(filtered) == 0 {
		res.Warnings = append(res.Warnings, &EmptyResultWarning{Selection: sel})
		metrics.RecordEmptyResult()
	}

	metrics.RecordPipelineRun(float64(time.Since(start).Microseconds())/1000, len(filtered))
	return res, nil
}
