// Package handler implements the planner's HTTP API: schema, sessions,
// records, settings, workflow steps, approvals, activity and the websocket
// event feed of a session.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/activity"
	"github.com/mfperdi/parishliturgyplanner/internal/eventbus"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/session"
)

// Handler holds the dependencies of every route.
type Handler struct {
	reg      *schema.Registry
	sessions *session.Manager
	activity activity.Store
	hub      *eventbus.Hub
	log      zerolog.Logger
}

// New creates a Handler. activity and hub may be nil, which disables the
// activity and event routes.
func New(reg *schema.Registry, sessions *session.Manager, act activity.Store, hub *eventbus.Hub, log zerolog.Logger) *Handler {
	return &Handler{reg: reg, sessions: sessions, activity: act, hub: hub, log: log}
}

// RegisterRoutes registers the API under /api/v1 on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/schema", h.ListEntities)
		r.Get("/schema/{entity}", h.GetEntity)
		r.Get("/activity", h.ListActivity)
		r.Get("/activity/summary", h.SummarizeActivity)

		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Use(h.withSession)
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Get("/events", h.StreamEvents)
			r.Get("/activity", h.ListSessionActivity)
			r.Get("/activity/summary", h.SummarizeSessionActivity)

			r.Get("/records/{entity}", h.ListRecords)
			r.Get("/records/{entity}/form", h.GetForm)
			r.Post("/records/{entity}", h.CreateRecord)
			r.Put("/records/{entity}/{row}", h.UpdateRecord)
			r.Delete("/records/{entity}/{row}", h.DeleteRecord)

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.SaveSettings)

			r.Get("/workflow", h.GetWorkflow)
			r.Put("/workflow/period", h.SelectPeriod)
			r.Post("/workflow/steps/{step}/run", h.RunStep)

			r.Get("/approvals", h.GetApprovals)
			r.Post("/approvals/fetch", h.FetchApprovals)
			r.Post("/approvals/bulk-approve", h.BulkApprove)
			r.Post("/approvals/{index}/approve", h.Approve)
			r.Post("/approvals/{index}/reject/start", h.StartReject)
			r.Delete("/approvals/{index}/reject", h.CancelReject)
			r.Post("/approvals/{index}/reject", h.ConfirmReject)
		})
	})
}

type sessionKey struct{}

// withSession resolves the {session} parameter and stores the session in
// the request context.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "session")
		s := h.sessions.Get(id)
		if s == nil {
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "unknown or expired session: "+id)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}
