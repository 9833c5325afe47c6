package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
)

// SchedulingRepository owns working windows and appointments. Mutations run
// the conflict guard and the write inside a single transaction; this is the
// only path through which bookings change.
type SchedulingRepository interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAppointments(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	CreateWindow(ctx context.Context, w domain.WorkingWindow) (domain.WorkingWindow, error)
	UpdateWindow(ctx context.Context, w domain.WorkingWindow) (domain.WorkingWindow, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) (domain.WorkingWindow, error)
	ListWindows(ctx context.Context, practitionerID uuid.UUID) ([]domain.WorkingWindow, error)
	ListWindowsForDay(ctx context.Context, practitionerID uuid.UUID, dayOfWeek int) ([]domain.WorkingWindow, error)
}

// ScheduleTx is the transaction-scoped view the conflict guard runs against.
type ScheduleTx interface {
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	SaveAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	// OverlappingAppointments returns non-cancelled appointments of the
	// practitioner intersecting [start,end), excluding excludeID when set.
	OverlappingAppointments(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Appointment, error)
}
