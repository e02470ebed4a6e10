package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mfperdi/parishliturgyplanner/internal/admin"
	"github.com/mfperdi/parishliturgyplanner/internal/draft"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
)

type saveRequest struct {
	Values map[string]any `json:"values"`
}

type rowsResponse struct {
	Entity string          `json:"entity"`
	Rows   []record.Values `json:"rows"`
}

// ListRecords returns a fresh snapshot of a collection.
// GET /api/v1/sessions/{session}/records/{entity}
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	listing, err := sessionFrom(r).Records.List(r.Context(), chi.URLParam(r, "entity"))
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// GetForm returns the add form, or the edit form of ?row=N.
// GET /api/v1/sessions/{session}/records/{entity}/form
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	row := admin.NewRow
	if v := r.URL.Query().Get("row"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_INDEX", "invalid row: "+v)
			return
		}
		row = n
	}
	form, err := sessionFrom(r).Records.Form(r.Context(), chi.URLParam(r, "entity"), row)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// CreateRecord commits a new record.
// POST /api/v1/sessions/{session}/records/{entity}
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, admin.NewRow, http.StatusCreated)
}

// UpdateRecord commits an edit of the row at {row}.
// PUT /api/v1/sessions/{session}/records/{entity}/{row}
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	row, ok := parseIndex(w, r, "row")
	if !ok {
		return
	}
	h.save(w, r, row, http.StatusOK)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, row, status int) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	entity := chi.URLParam(r, "entity")
	res, err := sessionFrom(r).Records.Save(r.Context(), entity, row, req.Values)
	var verr *draft.ValidationError
	if errors.As(err, &verr) && res != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  verr.Error(),
			Code:   "VALIDATION_ERROR",
			Fields: verr.Fields,
			Form:   res.Form,
		})
		return
	}
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, status, rowsResponse{Entity: entity, Rows: res.Rows})
}

// DeleteRecord removes the row at {row}.
// DELETE /api/v1/sessions/{session}/records/{entity}/{row}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	row, ok := parseIndex(w, r, "row")
	if !ok {
		return
	}
	entity := chi.URLParam(r, "entity")
	rows, err := sessionFrom(r).Records.Delete(r.Context(), entity, row)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Entity: entity, Rows: rows})
}
