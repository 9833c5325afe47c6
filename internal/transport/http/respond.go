package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinicdesk/backend/internal/service/directory"
	"clinicdesk/backend/internal/service/scheduling"
	"clinicdesk/backend/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps service and store failures onto the wire contract.
// Unknown errors collapse to a generic 500 so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	var schedErr *scheduling.ValidationError
	var dirErr *directory.ValidationError

	switch {
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "slot_unavailable", "the requested time overlaps an existing appointment")
	case errors.Is(err, store.ErrAlreadyRestored):
		writeError(w, http.StatusConflict, "already_restored", "the entity is no longer deleted")
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such record")
	case errors.As(err, &schedErr), errors.As(err, &dirErr):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
