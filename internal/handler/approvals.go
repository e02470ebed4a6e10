package handler

import (
	"net/http"

	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/session"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

type approvalsResponse struct {
	Period       string              `json:"period,omitempty"`
	Items        []approval.ItemView `json:"items"`
	BulkInFlight bool                `json:"bulk_in_flight"`
	Approved     *int                `json:"approved,omitempty"`
}

func toApprovalsResponse(s *session.Session) approvalsResponse {
	return approvalsResponse{
		Period:       string(s.Approvals.Period()),
		Items:        s.Approvals.Items(),
		BulkInFlight: s.Approvals.BulkInFlight(),
	}
}

// GetApprovals returns the last fetched queue.
// GET /api/v1/sessions/{session}/approvals
func (h *Handler) GetApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toApprovalsResponse(sessionFrom(r)))
}

// FetchApprovals loads the pending items of a period, defaulting to the
// workflow's selected period.
// POST /api/v1/sessions/{session}/approvals/fetch
func (h *Handler) FetchApprovals(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	s := sessionFrom(r)
	p := s.Workflow.Period()
	if req.Period != "" {
		var err error
		if p, err = workflow.ParsePeriod(req.Period); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PERIOD", err.Error())
			return
		}
	}
	if p == "" {
		errorToHTTP(w, h.log, approval.ErrNoPeriod)
		return
	}
	if _, err := s.Approvals.Fetch(r.Context(), p); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalsResponse(s))
}

// Approve approves one item.
// POST /api/v1/sessions/{session}/approvals/{index}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r, "index")
	if !ok {
		return
	}
	s := sessionFrom(r)
	if err := s.Approvals.Approve(r.Context(), idx); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalsResponse(s))
}

// StartReject opens the note capture for one item.
// POST /api/v1/sessions/{session}/approvals/{index}/reject/start
func (h *Handler) StartReject(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r, "index")
	if !ok {
		return
	}
	s := sessionFrom(r)
	if err := s.Approvals.StartReject(idx); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalsResponse(s))
}

// CancelReject closes the note capture.
// DELETE /api/v1/sessions/{session}/approvals/{index}/reject
func (h *Handler) CancelReject(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r, "index")
	if !ok {
		return
	}
	s := sessionFrom(r)
	s.Approvals.CancelReject(idx)
	writeJSON(w, http.StatusOK, toApprovalsResponse(s))
}

type rejectRequest struct {
	Note string `json:"note"`
}

// ConfirmReject submits the rejection with its note.
// POST /api/v1/sessions/{session}/approvals/{index}/reject
func (h *Handler) ConfirmReject(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r, "index")
	if !ok {
		return
	}
	var req rejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	s := sessionFrom(r)
	if err := s.Approvals.ConfirmReject(r.Context(), idx, req.Note); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalsResponse(s))
}

// BulkApprove approves every clean item of the fetched period.
// POST /api/v1/sessions/{session}/approvals/bulk-approve
func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	n, err := s.Approvals.BulkApproveClean(r.Context())
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	resp := toApprovalsResponse(s)
	resp.Approved = &n
	writeJSON(w, http.StatusOK, resp)
}
