package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mfperdi/parishliturgyplanner/internal/session"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

type reportResponse struct {
	workflow.ValidationReport
	Tone    workflow.Tone `json:"tone"`
	Summary string        `json:"summary"`
}

type workflowResponse struct {
	Period string          `json:"period,omitempty"`
	Steps  []workflow.Step `json:"steps"`
	Report *reportResponse `json:"report,omitempty"`
}

func toWorkflowResponse(s *session.Session) workflowResponse {
	resp := workflowResponse{
		Period: string(s.Workflow.Period()),
		Steps:  s.Workflow.Steps(),
	}
	if rep, ok := s.Workflow.Report(); ok {
		resp.Report = &reportResponse{ValidationReport: rep, Tone: rep.Tone(), Summary: rep.Summary()}
	}
	return resp
}

// GetWorkflow returns the selected period and the six steps.
// GET /api/v1/sessions/{session}/workflow
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toWorkflowResponse(sessionFrom(r)))
}

type periodRequest struct {
	Period string `json:"period"`
}

// SelectPeriod selects (or with an empty period clears) the scheduling
// month. Step progress of a previously selected month is restored.
// PUT /api/v1/sessions/{session}/workflow/period
func (h *Handler) SelectPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	var p workflow.Period
	if req.Period != "" {
		var err error
		if p, err = workflow.ParsePeriod(req.Period); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PERIOD", err.Error())
			return
		}
	}
	s := sessionFrom(r)
	s.Workflow.SelectPeriod(r.Context(), p)
	writeJSON(w, http.StatusOK, toWorkflowResponse(s))
}

// RunStep runs an operator-triggered step and returns once it settles.
// A failed step is reported with the collaborator's message and its status
// stays error until run again.
// POST /api/v1/sessions/{session}/workflow/steps/{step}/run
func (h *Handler) RunStep(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_STEP", "step must be a number from 1 to 6")
		return
	}
	s := sessionFrom(r)
	if err := s.Workflow.Run(r.Context(), workflow.StepID(n)); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowResponse(s))
}
