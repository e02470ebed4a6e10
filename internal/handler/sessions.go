package handler

import (
	"net/http"
	"time"

	"github.com/mfperdi/parishliturgyplanner/internal/metrics"
	"github.com/mfperdi/parishliturgyplanner/internal/session"
)

type sessionResponse struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Period       string    `json:"period,omitempty"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt(),
		Period:       string(s.Workflow.Period()),
	}
}

// CreateSession starts an operator session.
// POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	metrics.SetSessions(h.sessions.Len())
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// GetSession returns session info.
// GET /api/v1/sessions/{session}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(sessionFrom(r)))
}

// DeleteSession ends a session.
// DELETE /api/v1/sessions/{session}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Remove(sessionFrom(r).ID)
	metrics.SetSessions(h.sessions.Len())
	w.WriteHeader(http.StatusNoContent)
}
