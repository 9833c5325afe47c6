package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/store"
)

const maxPageSize = 500

// Queries is the read side of the audit trail.
type Queries struct {
	repo store.AuditRepository
}

func NewQueries(repo store.AuditRepository) *Queries {
	return &Queries{repo: repo}
}

func (q *Queries) Get(ctx context.Context, id uuid.UUID) (domain.AuditLogEntry, error) {
	return q.repo.Get(ctx, id)
}

func (q *Queries) List(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error) {
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return q.repo.List(ctx, limit, offset)
}

func (q *Queries) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]domain.AuditLogEntry, error) {
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return q.repo.ListByActor(ctx, actorID, limit)
}

func (q *Queries) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.AuditLogEntry, error) {
	return q.repo.ListByEntity(ctx, entityType, entityID)
}

func (q *Queries) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.AuditLogEntry, error) {
	return q.repo.ListByDateRange(ctx, from, to)
}
