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

type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

type directoryTx struct {
	tx bun.Tx
}

func (r *DirectoryRepo) GetUser(ctx context.Context, id uuid.UUID) (domain.UserAccount, error) {
	var u domain.UserAccount
	if err := scanActive(ctx, r.db.NewSelect().Model(&u), id); err != nil {
		return domain.UserAccount{}, err
	}
	return u, nil
}

func (r *DirectoryRepo) GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	var p domain.Patient
	if err := scanActive(ctx, r.db.NewSelect().Model(&p), id); err != nil {
		return domain.Patient{}, err
	}
	return p, nil
}

func (r *DirectoryRepo) GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error) {
	var p domain.Practitioner
	if err := scanActive(ctx, r.db.NewSelect().Model(&p), id); err != nil {
		return domain.Practitioner{}, err
	}
	return p, nil
}

func (r *DirectoryRepo) GetFrontDesk(ctx context.Context, id uuid.UUID) (domain.FrontDesk, error) {
	var f domain.FrontDesk
	if err := scanActive(ctx, r.db.NewSelect().Model(&f), id); err != nil {
		return domain.FrontDesk{}, err
	}
	return f, nil
}

func (r *DirectoryRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx store.DirectoryTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, directoryTx{tx: tx})
	})
}

func scanActive(ctx context.Context, q *bun.SelectQuery, id uuid.UUID) error {
	err := q.Where("id = ?", id).
		Where("is_deleted = false").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func findByID(ctx context.Context, q *bun.SelectQuery, id uuid.UUID, includeDeleted bool) error {
	q = q.Where("id = ?", id)
	if !includeDeleted {
		q = q.Where("is_deleted = false")
	}
	err := q.Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func findByName(ctx context.Context, q *bun.SelectQuery, name string, includeDeleted bool) error {
	q = q.Where("name = ?", name)
	if !includeDeleted {
		q = q.Where("is_deleted = false")
	}
	err := q.OrderExpr("created_at DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func softDeleteRow(ctx context.Context, tx bun.Tx, model any, id, deletedBy uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model(model).
		Set("is_deleted = true").
		Set("deleted_at = ?", time.Now().UTC()).
		Set("deleted_by = ?", deletedBy).
		Where("id = ?", id).
		Where("is_deleted = false").
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func undeleteRow(ctx context.Context, tx bun.Tx, model any, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model(model).
		Set("is_deleted = false").
		Set("deleted_at = NULL").
		Set("deleted_by = NULL").
		Where("id = ?", id).
		Where("is_deleted = true").
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t directoryTx) FindUser(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.UserAccount, error) {
	var u domain.UserAccount
	if err := findByID(ctx, t.tx.NewSelect().Model(&u), id, includeDeleted); err != nil {
		return domain.UserAccount{}, err
	}
	return u, nil
}

func (t directoryTx) SoftDeleteUser(ctx context.Context, id, deletedBy uuid.UUID) (domain.UserAccount, error) {
	if err := softDeleteRow(ctx, t.tx, (*domain.UserAccount)(nil), id, deletedBy); err != nil {
		return domain.UserAccount{}, err
	}
	return t.FindUser(ctx, id, true)
}

func (t directoryTx) UndeleteUser(ctx context.Context, id uuid.UUID) error {
	return undeleteRow(ctx, t.tx, (*domain.UserAccount)(nil), id)
}

func (t directoryTx) InsertUser(ctx context.Context, u domain.UserAccount) error {
	u.ClearDeleted()
	_, err := t.tx.NewInsert().Model(&u).Exec(ctx)
	return err
}

func (t directoryTx) FindPatient(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Patient, error) {
	var p domain.Patient
	if err := findByID(ctx, t.tx.NewSelect().Model(&p), id, includeDeleted); err != nil {
		return domain.Patient{}, err
	}
	return p, nil
}

func (t directoryTx) SoftDeletePatient(ctx context.Context, id, deletedBy uuid.UUID) (domain.Patient, error) {
	if err := softDeleteRow(ctx, t.tx, (*domain.Patient)(nil), id, deletedBy); err != nil {
		return domain.Patient{}, err
	}
	return t.FindPatient(ctx, id, true)
}

func (t directoryTx) UndeletePatient(ctx context.Context, id uuid.UUID) error {
	return undeleteRow(ctx, t.tx, (*domain.Patient)(nil), id)
}

func (t directoryTx) InsertPatient(ctx context.Context, p domain.Patient) error {
	p.ClearDeleted()
	_, err := t.tx.NewInsert().Model(&p).Exec(ctx)
	return err
}

func (t directoryTx) FindPractitioner(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Practitioner, error) {
	var p domain.Practitioner
	if err := findByID(ctx, t.tx.NewSelect().Model(&p), id, includeDeleted); err != nil {
		return domain.Practitioner{}, err
	}
	return p, nil
}

func (t directoryTx) FindPractitionerByName(ctx context.Context, name string, includeDeleted bool) (domain.Practitioner, error) {
	var p domain.Practitioner
	if err := findByName(ctx, t.tx.NewSelect().Model(&p), name, includeDeleted); err != nil {
		return domain.Practitioner{}, err
	}
	return p, nil
}

func (t directoryTx) SoftDeletePractitioner(ctx context.Context, id, deletedBy uuid.UUID) (domain.Practitioner, error) {
	if err := softDeleteRow(ctx, t.tx, (*domain.Practitioner)(nil), id, deletedBy); err != nil {
		return domain.Practitioner{}, err
	}
	return t.FindPractitioner(ctx, id, true)
}

func (t directoryTx) UndeletePractitioner(ctx context.Context, id uuid.UUID) error {
	return undeleteRow(ctx, t.tx, (*domain.Practitioner)(nil), id)
}

func (t directoryTx) InsertPractitioner(ctx context.Context, p domain.Practitioner) error {
	p.ClearDeleted()
	_, err := t.tx.NewInsert().Model(&p).Exec(ctx)
	return err
}

func (t directoryTx) FindFrontDesk(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.FrontDesk, error) {
	var f domain.FrontDesk
	if err := findByID(ctx, t.tx.NewSelect().Model(&f), id, includeDeleted); err != nil {
		return domain.FrontDesk{}, err
	}
	return f, nil
}

func (t directoryTx) FindFrontDeskByName(ctx context.Context, name string, includeDeleted bool) (domain.FrontDesk, error) {
	var f domain.FrontDesk
	if err := findByName(ctx, t.tx.NewSelect().Model(&f), name, includeDeleted); err != nil {
		return domain.FrontDesk{}, err
	}
	return f, nil
}

func (t directoryTx) SoftDeleteFrontDesk(ctx context.Context, id, deletedBy uuid.UUID) (domain.FrontDesk, error) {
	if err := softDeleteRow(ctx, t.tx, (*domain.FrontDesk)(nil), id, deletedBy); err != nil {
		return domain.FrontDesk{}, err
	}
	return t.FindFrontDesk(ctx, id, true)
}

func (t directoryTx) UndeleteFrontDesk(ctx context.Context, id uuid.UUID) error {
	return undeleteRow(ctx, t.tx, (*domain.FrontDesk)(nil), id)
}

func (t directoryTx) InsertFrontDesk(ctx context.Context, f domain.FrontDesk) error {
	f.ClearDeleted()
	_, err := t.tx.NewInsert().Model(&f).Exec(ctx)
	return err
}

func (t directoryTx) AppendAuditEntry(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	m := entry
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.AuditLogEntry{}, err
	}
	return m, nil
}
