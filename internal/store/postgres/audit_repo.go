package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/store"
)

const defaultAuditPageSize = 100

type AuditRepo struct {
	db *bun.DB
}

func NewAuditRepo(db *bun.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	m := entry
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.AuditLogEntry{}, err
	}
	return m, nil
}

func (r *AuditRepo) Get(ctx context.Context, id uuid.UUID) (domain.AuditLogEntry, error) {
	var e domain.AuditLogEntry
	err := r.db.NewSelect().
		Model(&e).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuditLogEntry{}, store.ErrNotFound
	}
	if err != nil {
		return domain.AuditLogEntry{}, err
	}
	return e, nil
}

func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	var rows []domain.AuditLogEntry
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AuditRepo) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	var rows []domain.AuditLogEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("actor_id = ?", actorID).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AuditRepo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.AuditLogEntry, error) {
	var rows []domain.AuditLogEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AuditRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.AuditLogEntry, error) {
	var rows []domain.AuditLogEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("created_at >= ?", from.UTC()).
		Where("created_at <= ?", to.UTC()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
