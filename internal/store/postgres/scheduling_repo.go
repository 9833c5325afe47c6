package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

func (r *SchedulingRepo) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inPractitionerTx(ctx, appt.PractitionerID, func(ctx context.Context, tx store.ScheduleTx) error {
		if err := ensureNoBookingConflict(ctx, tx, appt.PractitionerID, appt.StartTime, appt.EndTime, uuid.Nil); err != nil {
			return err
		}
		a, err := tx.InsertAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inPractitionerTx(ctx, appt.PractitionerID, func(ctx context.Context, tx store.ScheduleTx) error {
		if _, err := tx.GetAppointment(ctx, appt.ID); err != nil {
			return err
		}
		// A cancelled appointment frees its interval, so the guard only
		// runs when the row keeps holding one.
		if appt.Status != domain.AppointmentCancelled {
			if err := ensureNoBookingConflict(ctx, tx, appt.PractitionerID, appt.StartTime, appt.EndTime, appt.ID); err != nil {
				return err
			}
		}
		a, err := tx.SaveAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r *SchedulingRepo) ListAppointments(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) CreateWindow(ctx context.Context, w domain.WorkingWindow) (domain.WorkingWindow, error) {
	_, err := r.db.NewInsert().Model(&w).Exec(ctx)
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	return w, nil
}

func (r *SchedulingRepo) UpdateWindow(ctx context.Context, w domain.WorkingWindow) (domain.WorkingWindow, error) {
	res, err := r.db.NewUpdate().
		Model(&w).
		Column("day_of_week", "start_minute", "end_minute", "slot_duration_minutes", "updated_at").
		Where("id = ?", w.ID).
		Exec(ctx)
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	if affected == 0 {
		return domain.WorkingWindow{}, store.ErrNotFound
	}
	return w, nil
}

func (r *SchedulingRepo) DeleteWindow(ctx context.Context, id uuid.UUID) (domain.WorkingWindow, error) {
	var w domain.WorkingWindow
	err := r.db.NewSelect().
		Model(&w).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WorkingWindow{}, store.ErrNotFound
	}
	if err != nil {
		return domain.WorkingWindow{}, err
	}

	res, err := r.db.NewDelete().
		Model((*domain.WorkingWindow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	if affected == 0 {
		return domain.WorkingWindow{}, store.ErrNotFound
	}
	return w, nil
}

func (r *SchedulingRepo) ListWindows(ctx context.Context, practitionerID uuid.UUID) ([]domain.WorkingWindow, error) {
	var rows []domain.WorkingWindow
	err := r.db.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		OrderExpr("day_of_week ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ListWindowsForDay(ctx context.Context, practitionerID uuid.UUID, dayOfWeek int) ([]domain.WorkingWindow, error) {
	var rows []domain.WorkingWindow
	err := r.db.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		Where("day_of_week = ?", dayOfWeek).
		OrderExpr("start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// inPractitionerTx serializes bookings per practitioner with an advisory
// transaction lock, closing the check-then-act race between the conflict
// guard and the write.
func (r *SchedulingRepo) inPractitionerTx(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockPractitionerCalendar(ctx, tx, practitionerID); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
}

func lockPractitionerCalendar(ctx context.Context, tx bun.Tx, practitionerID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", practitionerID.String()).Exec(ctx)
	return err
}

// ensureNoBookingConflict is the conflict guard: it rejects a proposed
// interval when any non-cancelled appointment of the practitioner overlaps
// it. Must run inside the same transaction as the subsequent write.
func ensureNoBookingConflict(ctx context.Context, tx store.ScheduleTx, practitionerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) error {
	overlapping, err := tx.OverlappingAppointments(ctx, practitionerID, start.UTC(), end.UTC(), excludeID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return store.ErrConflict
	}
	return nil
}

func (t scheduleTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapOverlapConstraint(err)
	}
	return m, nil
}

func (t scheduleTx) SaveAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	// practitioner_id is immutable after booking; the service rejects
	// attempts to change it before reaching this update.
	res, err := t.tx.NewUpdate().
		Model(&m).
		Column("patient_id", "service_id", "start_time", "end_time", "status", "notes", "updated_at").
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapOverlapConstraint(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (t scheduleTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := t.tx.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

func (t scheduleTx) OverlappingAppointments(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := t.tx.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		Where("status <> ?", domain.AppointmentCancelled).
		Where("start_time < ?", end).
		Where("end_time > ?", start)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// mapOverlapConstraint translates the last-resort exclusion constraint into
// the conflict sentinel. The guard query catches overlaps first; the
// constraint only fires under concurrent writers that bypassed the lock.
func mapOverlapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
		return store.ErrConflict
	}
	return err
}
