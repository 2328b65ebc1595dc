package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/quickshop/internal/domain/model"
	"github.com/okian/quickshop/internal/domain/session"
)

// Selection actions accepted by PUT /sessions/{id}/selection?action=.
const (
	actionSelectAll = "select_all"
	actionClearAll  = "clear_all"
)

const maxSelectionBytes = 64 << 10

// SessionsHandler handles session lifecycle and filter requests.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.CreateSession(r.Context())
	if err != nil {
		writeDepError(w, "api.sessions.create", err)
		return
	}
	w.Header().Set("Location", "/sessions/"+info.ID)
	writeJSON(w, http.StatusCreated, info)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDepError(w, "api.sessions.get", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeDepError(w, "api.sessions.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUseSample handles POST /sessions/{id}/sample.
func (h *SessionsHandler) HandleUseSample(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.UseSample(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDepError(w, "api.sessions.sample", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleSelection handles PUT /sessions/{id}/selection. The body is a
// Selection; ?action=select_all or ?action=clear_all replaces only the
// segment set and ignores the body.
func (h *SessionsHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.sessions.selection"
	ctx := r.Context()
	id := r.PathValue("id")

	var (
		info session.Info
		err  error
	)
	switch action := r.URL.Query().Get("action"); action {
	case actionSelectAll:
		info, err = h.deps.SelectAllSegments(ctx, id)
	case actionClearAll:
		info, err = h.deps.ClearSegments(ctx, id)
	case "":
		var sel model.Selection
		if sel, err = decodeSelection(r.Body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		info, err = h.deps.UpdateSelection(ctx, id, sel)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err != nil {
		writeDepError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func decodeSelection(body io.Reader) (model.Selection, error) {
	var sel model.Selection
	dec := json.NewDecoder(io.LimitReader(body, maxSelectionBytes))
	if err := dec.Decode(&sel); err != nil {
		if errors.Is(err, io.EOF) {
			return sel, errors.New("empty body")
		}
		return sel, err
	}
	return sel, nil
}
