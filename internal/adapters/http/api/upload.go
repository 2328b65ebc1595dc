package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/quickshop/internal/domain/loader"
	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/session"
)

const (
	uploadField       = "file"
	defaultUploadName = "upload.csv"
)

// UploadHandler accepts CSV uploads for a session.
type UploadHandler struct {
	deps     Dependencies
	maxBytes int64
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps Dependencies, maxBytes int64) *UploadHandler {
	return &UploadHandler{deps: deps, maxBytes: maxBytes}
}

// uploadErrorResponse extends errorResponse with loader diagnostics.
type uploadErrorResponse struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Missing []string                 `json:"missing,omitempty"`
	Records int                      `json:"records,omitempty"`
	Dropped int                      `json:"dropped,omitempty"`
	Errors  []model.RowCoercionError `json:"errors,omitempty"`
}

// HandleUpload handles POST /sessions/{id}/upload. The body is either a
// multipart form with a "file" part or the raw CSV, named by ?name=.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	body, name, closeFn, err := h.uploadBody(r)
	if err != nil {
		writeUploadError(w, op, err)
		return
	}
	defer closeFn()

	rep, err := h.deps.Upload(r.Context(), r.PathValue("id"), body, name)
	if err != nil {
		writeUploadError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *UploadHandler) uploadBody(r *http.Request) (io.Reader, string, func(), error) {
	nop := func() {}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return r.Body, uploadName(r.URL.Query().Get("name")), nop, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, "", nop, errors.Join(ErrUnsupportedType, err)
	}
	switch {
	case mt == "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", nop, err
			}
			return nil, "", nop, errors.Join(ErrBadRequest, err)
		}
		f, hdr, err := r.FormFile(uploadField)
		if err != nil {
			return nil, "", nop, errors.Join(ErrBadRequest, err)
		}
		return f, uploadName(hdr.Filename), func() { _ = f.Close() }, nil
	case mt == "text/csv", mt == "application/csv", mt == "application/octet-stream",
		strings.HasPrefix(mt, "text/plain"):
		return r.Body, uploadName(r.URL.Query().Get("name")), nop, nil
	default:
		return nil, "", nop, ErrUnsupportedType
	}
}

func uploadName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultUploadName
	}
	return name
}

func writeUploadError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		err = WrapKind(op, ErrInternal, err)
	}
	out := uploadErrorResponse{Code: code, Message: err.Error()}

	var schemaErr *loader.SchemaError
	if errors.As(err, &schemaErr) {
		out.Missing = schemaErr.Missing
	}
	var uploadErr *session.UploadError
	if errors.As(err, &uploadErr) {
		out.Records = uploadErr.Records
		out.Dropped = uploadErr.Dropped
		out.Errors = uploadErr.Errors
	}
	writeJSON(w, status, out)
}
