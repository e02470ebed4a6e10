package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mfperdi/parishliturgyplanner/internal/activity"
)

// parseActivityQuery reads since, categories, min_weight, limit and cursor.
func parseActivityQuery(r *http.Request) activity.QueryOptions {
	opts := activity.DefaultQueryOptions()
	q := r.URL.Query()
	if s := q.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			opts.Since = &t
		}
	}
	if cats := q.Get("categories"); cats != "" {
		opts.Categories = strings.Split(cats, ",")
	}
	if mw := q.Get("min_weight"); mw != "" {
		opts.MinWeight = mw
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			opts.Limit = min(n, 500)
		}
	}
	opts.Cursor = q.Get("cursor")
	opts.SessionID = q.Get("session")
	return opts
}

// ListActivity returns the activity log across sessions, newest first.
// GET /api/v1/activity
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	h.queryActivity(w, r, parseActivityQuery(r))
}

// ListSessionActivity returns the activity of one session.
// GET /api/v1/sessions/{session}/activity
func (h *Handler) ListSessionActivity(w http.ResponseWriter, r *http.Request) {
	opts := parseActivityQuery(r)
	opts.SessionID = sessionFrom(r).ID
	h.queryActivity(w, r, opts)
}

func (h *Handler) queryActivity(w http.ResponseWriter, r *http.Request, opts activity.QueryOptions) {
	if h.activity == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "activity log is disabled")
		return
	}
	page, err := h.activity.Query(r.Context(), opts)
	if err != nil {
		h.log.Error().Err(err).Msg("handler: activity query failed")
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if page.Entries == nil {
		page.Entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, page)
}

// SummarizeActivity aggregates activity across sessions by category and
// evaluates escalation rules.
// GET /api/v1/activity/summary
func (h *Handler) SummarizeActivity(w http.ResponseWriter, r *http.Request) {
	h.summarize(w, r, parseActivityQuery(r))
}

// SummarizeSessionActivity aggregates the activity of one session.
// GET /api/v1/sessions/{session}/activity/summary
func (h *Handler) SummarizeSessionActivity(w http.ResponseWriter, r *http.Request) {
	opts := parseActivityQuery(r)
	opts.SessionID = sessionFrom(r).ID
	h.summarize(w, r, opts)
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request, opts activity.QueryOptions) {
	if h.activity == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "activity log is disabled")
		return
	}
	opts.Cursor = ""
	entries, err := activity.Collect(r.Context(), h.activity, opts)
	if err != nil {
		h.log.Error().Err(err).Msg("handler: activity summary failed")
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, activity.Summarize(entries, opts.SessionID, *opts.Since, time.Now(), activity.DefaultEscalations))
}
