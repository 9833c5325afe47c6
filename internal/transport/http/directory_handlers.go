package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
)

type directoryService interface {
	DeleteUser(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	DeletePatient(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	DeletePractitioner(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	DeleteFrontDesk(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type DirectoryHandler struct {
	svc directoryService
	log *slog.Logger
}

func NewDirectoryHandler(svc directoryService, log *slog.Logger) *DirectoryHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DirectoryHandler{svc: svc, log: log.With(slog.String("component", "http.directory"))}
}

func (h *DirectoryHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "user", h.svc.DeleteUser)
}

func (h *DirectoryHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "patient", h.svc.DeletePatient)
}

func (h *DirectoryHandler) DeletePractitioner(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "practitioner", h.svc.DeletePractitioner)
}

func (h *DirectoryHandler) DeleteFrontDesk(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "front desk account", h.svc.DeleteFrontDesk)
}

func (h *DirectoryHandler) delete(w http.ResponseWriter, r *http.Request, noun string, fn func(ctx context.Context, actor domain.Actor, id uuid.UUID) error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return
	}

	if err := fn(r.Context(), actor, id); err != nil {
		h.log.Warn(
			"delete failed",
			slog.Any("err", err),
			slog.String("entity", noun),
			slog.String("id", id.String()),
		)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": noun + " deleted"})
}
