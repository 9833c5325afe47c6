package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/service/audit"
	"clinicdesk/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo     store.SchedulingRepository
	recorder audit.Sink
}

func NewService(repo store.SchedulingRepository, recorder audit.Sink) *Service {
	if recorder == nil {
		recorder = audit.NopSink{}
	}
	return &Service{repo: repo, recorder: recorder}
}

// AvailableSlots computes the bookable slots for a practitioner on one
// calendar date. A practitioner without working windows that weekday gets an
// empty list, not an error.
func (s *Service) AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	if practitionerID == uuid.Nil {
		return nil, validationError("practitioner_id is required")
	}

	day := domain.DayStartUTC(date)
	windows, err := s.repo.ListWindowsForDay(ctx, practitionerID, domain.ISOWeekday(day))
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []domain.Slot{}, nil
	}

	appts, err := s.repo.ListAppointments(ctx, practitionerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	return domain.AvailableSlots(windows, appts, day), nil
}

// WeeklyAvailability fans AvailableSlots out over seven consecutive dates
// starting at the UTC midnight of from, for each practitioner.
func (s *Service) WeeklyAvailability(ctx context.Context, practitionerIDs []uuid.UUID, from time.Time) (map[uuid.UUID]map[string][]domain.Slot, error) {
	if len(practitionerIDs) == 0 {
		return nil, validationError("at least one practitioner_id is required")
	}

	start := domain.DayStartUTC(from)
	out := make(map[uuid.UUID]map[string][]domain.Slot, len(practitionerIDs))
	for _, pid := range practitionerIDs {
		byDate := make(map[string][]domain.Slot, 7)
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i)
			slots, err := s.AvailableSlots(ctx, pid, day)
			if err != nil {
				return nil, err
			}
			byDate[day.Format("2006-01-02")] = slots
		}
		out[pid] = byDate
	}
	return out, nil
}

type BookInput struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Status         domain.AppointmentStatus
	Notes          string
}

func (in BookInput) validate() error {
	if in.PatientID == uuid.Nil {
		return validationError("patient_id is required")
	}
	if in.PractitionerID == uuid.Nil {
		return validationError("practitioner_id is required")
	}
	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if end.Equal(start) || end.Before(start) {
		return validationError("end_time must be after start_time")
	}
	if end.Sub(start) > 24*time.Hour {
		return validationError("duration too long")
	}
	if in.Status != "" && !in.Status.Valid() {
		return validationError("invalid status")
	}
	return nil
}

// Book creates an appointment. The conflict guard runs inside the same
// transaction as the insert, so two concurrent requests for the same interval
// cannot both pass.
func (s *Service) Book(ctx context.Context, actor domain.Actor, in BookInput) (domain.Appointment, error) {
	if err := in.validate(); err != nil {
		return domain.Appointment{}, err
	}

	status := in.Status
	if status == "" {
		status = domain.AppointmentPending
	}

	appt, err := s.repo.CreateAppointment(ctx, domain.Appointment{
		PatientID:      in.PatientID,
		PractitionerID: in.PractitionerID,
		ServiceID:      in.ServiceID,
		StartTime:      in.StartTime.UTC(),
		EndTime:        in.EndTime.UTC(),
		Status:         status,
		Notes:          strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.record(actor, domain.ActionCreate, appt, nil)
	return appt, nil
}

// Reschedule updates an appointment in place. Setting status to cancelled is
// the only way an appointment leaves the calendar; rows are never deleted.
func (s *Service) Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, in BookInput) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if err := in.validate(); err != nil {
		return domain.Appointment{}, err
	}

	prev, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	// An appointment stays on the calendar it was booked on; moving it to
	// another practitioner is a cancel plus a fresh booking, so the conflict
	// guard always runs against the calendar the row actually lands on.
	if in.PractitionerID != prev.PractitionerID {
		return domain.Appointment{}, validationError("practitioner_id cannot change; cancel and book again")
	}

	status := in.Status
	if status == "" {
		status = prev.Status
	}

	appt, err := s.repo.UpdateAppointment(ctx, domain.Appointment{
		ID:             id,
		PatientID:      in.PatientID,
		PractitionerID: in.PractitionerID,
		ServiceID:      in.ServiceID,
		StartTime:      in.StartTime.UTC(),
		EndTime:        in.EndTime.UTC(),
		Status:         status,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      prev.CreatedAt,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	// Cancellation is audited as its own action, not folded into UPDATE.
	action := domain.ActionUpdate
	if appt.Status == domain.AppointmentCancelled && prev.Status != domain.AppointmentCancelled {
		action = domain.ActionCancel
	}
	s.record(actor, action, appt, changedFields(prev, appt))
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) ListForPractitioner(ctx context.Context, practitionerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if practitionerID == uuid.Nil {
		return nil, validationError("practitioner_id is required")
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Equal(start) || end.Before(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListAppointments(ctx, practitionerID, start, end)
}

type WindowInput struct {
	PractitionerID      uuid.UUID
	DayOfWeek           int
	StartMinute         int
	EndMinute           int
	SlotDurationMinutes int
}

func (s *Service) CreateWindow(ctx context.Context, actor domain.Actor, in WindowInput) (domain.WorkingWindow, error) {
	w := domain.WorkingWindow{
		PractitionerID:      in.PractitionerID,
		DayOfWeek:           in.DayOfWeek,
		StartMinute:         in.StartMinute,
		EndMinute:           in.EndMinute,
		SlotDurationMinutes: in.SlotDurationMinutes,
	}
	if err := w.Validate(); err != nil {
		return domain.WorkingWindow{}, validationError(err.Error())
	}

	created, err := s.repo.CreateWindow(ctx, w)
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionCreate,
		EntityType: domain.EntityWorkingWindow,
		EntityID:   created.ID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return created, nil
}

func (s *Service) UpdateWindow(ctx context.Context, actor domain.Actor, id uuid.UUID, in WindowInput) (domain.WorkingWindow, error) {
	if id == uuid.Nil {
		return domain.WorkingWindow{}, validationError("window_id is required")
	}
	w := domain.WorkingWindow{
		ID:                  id,
		PractitionerID:      in.PractitionerID,
		DayOfWeek:           in.DayOfWeek,
		StartMinute:         in.StartMinute,
		EndMinute:           in.EndMinute,
		SlotDurationMinutes: in.SlotDurationMinutes,
	}
	if err := w.Validate(); err != nil {
		return domain.WorkingWindow{}, validationError(err.Error())
	}

	updated, err := s.repo.UpdateWindow(ctx, w)
	if err != nil {
		return domain.WorkingWindow{}, err
	}
	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionUpdate,
		EntityType: domain.EntityWorkingWindow,
		EntityID:   updated.ID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return updated, nil
}

func (s *Service) DeleteWindow(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("window_id is required")
	}
	deleted, err := s.repo.DeleteWindow(ctx, id)
	if err != nil {
		return err
	}
	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionDelete,
		EntityType: domain.EntityWorkingWindow,
		EntityID:   deleted.ID,
		Details: domain.AuditDetails{
			UpdatedFields: map[string]any{
				"practitioner_id": deleted.PractitionerID.String(),
				"day_of_week":     deleted.DayOfWeek,
				"start_time":      domain.FormatClock(deleted.StartMinute),
				"end_time":        domain.FormatClock(deleted.EndMinute),
				"slot_duration":   deleted.SlotDurationMinutes,
			},
		},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
	return nil
}

func (s *Service) ListWindows(ctx context.Context, practitionerID uuid.UUID) ([]domain.WorkingWindow, error) {
	if practitionerID == uuid.Nil {
		return nil, validationError("practitioner_id is required")
	}
	return s.repo.ListWindows(ctx, practitionerID)
}

func (s *Service) record(actor domain.Actor, action domain.AuditAction, appt domain.Appointment, updated map[string]any) {
	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     action,
		EntityType: domain.EntityAppointment,
		EntityID:   appt.ID,
		Details: domain.AuditDetails{
			Appointment:   &appt,
			UpdatedFields: updated,
		},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
}

func changedFields(prev, next domain.Appointment) map[string]any {
	out := map[string]any{}
	if !prev.StartTime.Equal(next.StartTime) {
		out["start_time"] = next.StartTime
	}
	if !prev.EndTime.Equal(next.EndTime) {
		out["end_time"] = next.EndTime
	}
	if prev.Status != next.Status {
		out["status"] = string(next.Status)
	}
	if prev.PatientID != next.PatientID {
		out["patient_id"] = next.PatientID.String()
	}
	if prev.ServiceID != next.ServiceID {
		out["service_id"] = next.ServiceID.String()
	}
	if prev.Notes != next.Notes {
		out["notes"] = next.Notes
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
