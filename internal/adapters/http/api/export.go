package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/quickshop/internal/adapters/xlsx"
	"github.com/okian/quickshop/internal/domain/export"
	"github.com/okian/quickshop/internal/domain/sample"
)

const csvContentType = "text/csv; charset=utf-8"

// ExportHandler serves CSV and workbook downloads.
type ExportHandler struct {
	deps Dependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Dependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExport handles GET /sessions/{id}/export/{kind}.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	kind, err := export.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	// Buffer so a failure can still be reported with a proper status.
	var buf bytes.Buffer
	if err := h.deps.Export(r.Context(), r.PathValue("id"), kind, &buf); err != nil {
		writeDepError(w, op, err)
		return
	}
	writeAttachment(w, csvContentType, kind.FileName(h.deps.Now()), buf.Bytes())
}

// HandleWorkbook handles GET /sessions/{id}/export.xlsx.
func (h *ExportHandler) HandleWorkbook(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.deps.ExportWorkbook(r.Context(), r.PathValue("id"), &buf); err != nil {
		writeDepError(w, "api.export.xlsx", err)
		return
	}
	writeAttachment(w, xlsx.ContentType, xlsx.FileName(h.deps.Now()), buf.Bytes())
}

// HandleSample handles GET /sample.csv.
func (h *ExportHandler) HandleSample(w http.ResponseWriter, _ *http.Request) {
	writeAttachment(w, csvContentType, sample.DownloadName, h.deps.SampleCSV())
}

func writeAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
