package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled:
		return true
	}
	return false
}

// Appointment is a confirmed, pending or cancelled booking. Rows are never
// hard-deleted; cancellation is a status transition that frees the interval.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	PatientID      uuid.UUID         `bun:"patient_id,notnull,type:uuid" json:"patient_id"`
	PractitionerID uuid.UUID         `bun:"practitioner_id,notnull,type:uuid" json:"practitioner_id"`
	ServiceID      uuid.UUID         `bun:"service_id,type:uuid" json:"service_id"`
	StartTime      time.Time         `bun:"start_time,notnull" json:"start_time"`
	EndTime        time.Time         `bun:"end_time,notnull" json:"end_time"`
	Status         AppointmentStatus `bun:"status,notnull" json:"status"`
	Notes          string            `bun:"notes" json:"notes"`
	CreatedAt      time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
