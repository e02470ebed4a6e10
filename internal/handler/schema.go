package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfperdi/parishliturgyplanner/internal/schema"
)

// ListEntities returns every entity schema in declaration order.
// GET /api/v1/schema
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	ids := h.reg.EntityIDs()
	out := make([]*schema.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.reg.MustGet(id))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

// GetEntity returns one entity schema.
// GET /api/v1/schema/{entity}
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entity")
	e, ok := h.reg.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown entity: "+id)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
