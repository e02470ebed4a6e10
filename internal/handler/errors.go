package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/admin"
	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/draft"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

// errorToHTTP maps engine errors to HTTP responses. Remote failures carry
// the collaborator's message verbatim.
func errorToHTTP(w http.ResponseWriter, log zerolog.Logger, err error) {
	var verr *draft.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Code: "VALIDATION_ERROR", Fields: verr.Fields})
	case errors.Is(err, record.ErrRowNotFound):
		writeError(w, http.StatusConflict, "STALE_ROW", "the row no longer exists; reload and try again")
	case errors.Is(err, draft.ErrWidthMismatch):
		writeError(w, http.StatusConflict, "ROW_WIDTH_MISMATCH", err.Error())
	case errors.Is(err, workflow.ErrBusy),
		errors.Is(err, approval.ErrItemBusy),
		errors.Is(err, approval.ErrBulkBusy):
		writeError(w, http.StatusConflict, "BUSY", err.Error())
	case errors.Is(err, approval.ErrRejectNotStarted):
		writeError(w, http.StatusConflict, "REJECT_NOT_STARTED", err.Error())
	case errors.Is(err, admin.ErrUnknownEntity),
		errors.Is(err, approval.ErrUnknownItem),
		errors.Is(err, workflow.ErrUnknownStep):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, workflow.ErrNoPeriod), errors.Is(err, approval.ErrNoPeriod):
		writeError(w, http.StatusBadRequest, "NO_PERIOD", err.Error())
	case errors.Is(err, workflow.ErrNotTriggered):
		writeError(w, http.StatusBadRequest, "NOT_TRIGGERED", err.Error())
	case errors.Is(err, admin.ErrUnknownField), errors.Is(err, admin.ErrReadOnlyField):
		writeError(w, http.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, admin.ErrUnknownRow):
		writeError(w, http.StatusBadRequest, "UNKNOWN_ROW", err.Error())
	case remote.IsFailure(err):
		writeError(w, http.StatusBadGateway, "REMOTE_FAILURE", remote.Message(err))
	default:
		log.Error().Err(err).Msg("handler: internal error")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
