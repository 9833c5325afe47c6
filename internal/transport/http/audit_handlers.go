package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/service/restore"
)

type auditQueries interface {
	List(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]domain.AuditLogEntry, error)
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.AuditLogEntry, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.AuditLogEntry, error)
}

type restorer interface {
	Restore(ctx context.Context, logID uuid.UUID, actor domain.Actor) (restore.Result, error)
}

type AuditHandler struct {
	queries  auditQueries
	restorer restorer
	log      *slog.Logger
}

func NewAuditHandler(queries auditQueries, restorer restorer, log *slog.Logger) *AuditHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuditHandler{
		queries:  queries,
		restorer: restorer,
		log:      log.With(slog.String("component", "http.audit")),
	}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if from, to, ok := dateRange(r); ok {
		entries, err := h.queries.ListByDateRange(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := h.queries.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) ListByActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_actor_id", "id must be a valid UUID")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.queries.ListByActor(r.Context(), actorID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_entity_id", "id must be a valid UUID")
		return
	}
	entityType := domain.EntityType(chi.URLParam(r, "type"))

	entries, err := h.queries.ListByEntity(r.Context(), entityType, entityID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "actor identity headers are required")
		return
	}
	logID, err := uuid.Parse(chi.URLParam(r, "logID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_log_id", "log id must be a valid UUID")
		return
	}

	result, err := h.restorer.Restore(r.Context(), logID, actor)
	if err != nil {
		h.log.Warn(
			"restore failed",
			slog.Any("err", err),
			slog.String("log_id", logID.String()),
			slog.String("actor_id", actor.ID.String()),
		)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func dateRange(r *http.Request) (time.Time, time.Time, bool) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, false
	}
	from, err := time.Parse("2006-01-02", fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to.AddDate(0, 0, 1), true
}
