// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/quickshop/internal/adapters/repository"
	"github.com/okian/quickshop/internal/domain/chart"
	"github.com/okian/quickshop/internal/domain/export"
	"github.com/okian/quickshop/internal/domain/loader"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/pipeline"
	"github.com/okian/quickshop/internal/domain/session"
)

// Default limits.
const (
	defaultMaxUploadBytes = 10 << 20
	defaultUploadBurst    = 5
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSession(ctx context.Context) (session.Info, error)
	Session(ctx context.Context, id string) (session.Info, error)
	DeleteSession(ctx context.Context, id string) error

	// Upload replaces the session's dataset. On error the session is unchanged.
	Upload(ctx context.Context, id string, r io.Reader, name string) (*session.UploadReport, error)
	UseSample(ctx context.Context, id string) (session.Info, error)

	UpdateSelection(ctx context.Context, id string, sel model.Selection) (session.Info, error)
	SelectAllSegments(ctx context.Context, id string) (session.Info, error)
	ClearSegments(ctx context.Context, id string) (session.Info, error)

	Dashboard(ctx context.Context, id string, metric chart.Metric) (*pipeline.View, error)
	Export(ctx context.Context, id string, kind export.Kind, w io.Writer) error
	ExportWorkbook(ctx context.Context, id string, w io.Writer) error

	SampleCSV() []byte
	Now() time.Time
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	sessionsHandler  *SessionsHandler
	uploadHandler    *UploadHandler
	dashboardHandler *DashboardHandler
	exportHandler    *ExportHandler

	maxUploadBytes int64
	uploadLimiter  *rate.Limiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMaxUploadBytes caps the size of an upload body.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithUploadRate limits uploads across all sessions to perSecond with the
// given burst. A non-positive rate disables the limit.
func WithUploadRate(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		if perSecond <= 0 {
			s.uploadLimiter = nil
			return
		}
		if burst <= 0 {
			burst = defaultUploadBurst
		}
		s.uploadLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.sessionsHandler = NewSessionsHandler(deps)
	s.uploadHandler = NewUploadHandler(deps, s.maxUploadBytes)
	s.dashboardHandler = NewDashboardHandler(deps)
	s.exportHandler = NewExportHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /sample.csv", MetricsMiddleware(s.exportHandler.HandleSample, "sample"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleDelete, "session"))
	mux.HandleFunc("POST /sessions/{id}/sample", MetricsMiddleware(s.sessionsHandler.HandleUseSample, "sample_switch"))
	mux.HandleFunc("PUT /sessions/{id}/selection", MetricsMiddleware(s.sessionsHandler.HandleSelection, "selection"))

	upload := s.uploadHandler.HandleUpload
	if s.uploadLimiter != nil {
		upload = RateLimitMiddleware(upload, s.uploadLimiter)
	}
	mux.HandleFunc("POST /sessions/{id}/upload", MetricsMiddleware(upload, "upload"))

	mux.HandleFunc("GET /sessions/{id}/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("GET /sessions/{id}/export/{kind}", MetricsMiddleware(s.exportHandler.HandleExport, "export"))
	mux.HandleFunc("GET /sessions/{id}/export.xlsx", MetricsMiddleware(s.exportHandler.HandleWorkbook, "export_xlsx"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps a dependency error to a status and error code.
func classify(err error) (int, string) {
	var (
		schemaErr *loader.SchemaError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, "schema_error"
	case errors.Is(err, session.ErrNoValidRows):
		return http.StatusUnprocessableEntity, "no_valid_rows"
	case errors.Is(err, loader.ErrParse):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, ErrBadRequest), errors.Is(err, chart.ErrUnknownMetric), errors.Is(err, export.ErrUnknownKind):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeDepError writes err using classify.
func writeDepError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		err = WrapKind(op, ErrInternal, err)
	}
	writeError(w, status, code, err)
}
