package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"
)

// maxBodyBytes caps request bodies; records and settings edits are small.
const maxBodyBytes = 1 << 20

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("handler: writeJSON encode error")
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string         `json:"error"`
	Code   string         `json:"code"`
	Fields map[int]string `json:"fields,omitempty"`
	Form   any            `json:"form,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseIndex extracts a non-negative integer path parameter.
func parseIndex(w http.ResponseWriter, r *http.Request, paramName string) (int, bool) {
	raw := chi.URLParam(r, paramName)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_INDEX", fmt.Sprintf("invalid %s: %q", paramName, raw))
		return 0, false
	}
	return n, true
}
