package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
)

// AuditRepository appends and reads audit log entries. Entries are immutable;
// there is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error)
	Get(ctx context.Context, id uuid.UUID) (domain.AuditLogEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]domain.AuditLogEntry, error)
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.AuditLogEntry, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.AuditLogEntry, error)
}
