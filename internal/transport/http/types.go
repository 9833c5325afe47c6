package http

import (
	"time"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
)

type AppointmentRequest struct {
	PatientID      string    `json:"patient_id"`
	PractitionerID string    `json:"practitioner_id"`
	ServiceID      string    `json:"service_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	ServiceID      uuid.UUID `json:"service_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		PractitionerID: a.PractitionerID,
		ServiceID:      a.ServiceID,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Status:         string(a.Status),
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type SlotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func toSlotResponses(slots []domain.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{StartTime: s.Start, EndTime: s.End})
	}
	return out
}

type WorkingWindowRequest struct {
	DayOfWeek           int    `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

type WorkingWindowResponse struct {
	ID                  uuid.UUID `json:"id"`
	PractitionerID      uuid.UUID `json:"practitioner_id"`
	DayOfWeek           int       `json:"day_of_week"`
	StartTime           string    `json:"start_time"`
	EndTime             string    `json:"end_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
}

func toWindowResponse(w domain.WorkingWindow) WorkingWindowResponse {
	return WorkingWindowResponse{
		ID:                  w.ID,
		PractitionerID:      w.PractitionerID,
		DayOfWeek:           w.DayOfWeek,
		StartTime:           domain.FormatClock(w.StartMinute),
		EndTime:             domain.FormatClock(w.EndMinute),
		SlotDurationMinutes: w.SlotDurationMinutes,
	}
}
