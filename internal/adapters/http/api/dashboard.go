package api

import (
	"net/http"

	"github.com/okian/quickshop/internal/domain/chart"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/session"
)

// DashboardHandler serves the computed dashboard for a session.
type DashboardHandler struct {
	deps Dependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps Dependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

// DashboardResponse is the body of GET /sessions/{id}/dashboard.
type DashboardResponse struct {
	Session      session.Info             `json:"session"`
	Selection    model.Selection          `json:"selection"`
	Empty        bool                     `json:"empty"`
	Warnings     []string                 `json:"warnings"`
	Summary      model.Summary            `json:"summary"`
	Breakdown    []model.SegmentAggregate `json:"breakdown"`
	Trend        chart.Trend              `json:"trend"`
	Distribution []chart.Slice            `json:"visitor_distribution"`
	Conversion   []chart.Bar              `json:"conversion_by_segment"`
	Rows         model.Rows               `json:"rows"`
	Metrics      []chart.Metric           `json:"metrics"`
}

// HandleDashboard handles GET /sessions/{id}/dashboard?metric=.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	metric, err := chart.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	view, err := h.deps.Dashboard(r.Context(), r.PathValue("id"), metric)
	if err != nil {
		writeDepError(w, op, err)
		return
	}

	res := view.Result
	out := DashboardResponse{
		Session:      view.Session,
		Selection:    res.Selection,
		Empty:        res.Empty(),
		Warnings:     res.WarningMessages(),
		Summary:      res.Summary,
		Breakdown:    nonNil(res.Breakdown),
		Trend:        res.Trend,
		Distribution: nonNil(res.Distribution),
		Conversion:   nonNil(res.Conversion),
		Rows:         nonNil(res.Rows),
		Metrics:      chart.Metrics,
	}
	writeJSON(w, http.StatusOK, out)
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}
