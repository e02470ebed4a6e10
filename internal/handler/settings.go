package handler

import (
	"net/http"

	"github.com/mfperdi/parishliturgyplanner/internal/settings"
)

type settingsResponse struct {
	Rows    []settings.Row `json:"rows"`
	Changed []int          `json:"changed,omitempty"`
}

// GetSettings reads the settings and makes them the edit baseline.
// GET /api/v1/sessions/{session}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := sessionFrom(r).Settings.Load(r.Context())
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Rows: rows})
}

type saveSettingsRequest struct {
	// Edits maps row index to the new value.
	Edits map[int]string `json:"edits"`
}

// SaveSettings applies edits and writes every changed row. Edits of a
// failed save stay pending and are written by the next save.
// PUT /api/v1/sessions/{session}/settings
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	res, err := sessionFrom(r).Settings.Save(r.Context(), req.Edits)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Rows: res.Rows, Changed: res.Changed})
}
