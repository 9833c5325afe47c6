package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AuditAction string

const (
	ActionCreate  AuditAction = "CREATE"
	ActionUpdate  AuditAction = "UPDATE"
	ActionDelete  AuditAction = "DELETE"
	ActionRestore AuditAction = "RESTORE"
	ActionCancel  AuditAction = "CANCEL"
)

type EntityType string

const (
	EntityUser          EntityType = "user"
	EntityPatient       EntityType = "patient"
	EntityPractitioner  EntityType = "practitioner"
	EntityFrontDesk     EntityType = "front_desk"
	EntityAppointment   EntityType = "appointment"
	EntityWorkingWindow EntityType = "working_window"
)

// Actor is the resolved identity a request carries. The core trusts it as
// given; authentication happens upstream.
type Actor struct {
	ID        uuid.UUID
	Name      string
	Role      Role
	IPAddress string
	UserAgent string
}

// AuditDetails is the schema-tagged payload of an audit entry. Which fields
// are set depends on the entity type and action; a DELETE entry must carry the
// snapshot(s) needed to reconstruct the entity and any dependent profile.
type AuditDetails struct {
	DeletedUser         *UserAccount   `json:"deleted_user,omitempty"`
	DeletedPatient      *Patient       `json:"deleted_patient,omitempty"`
	DeletedPractitioner *Practitioner  `json:"deleted_practitioner,omitempty"`
	DeletedFrontDesk    *FrontDesk     `json:"deleted_front_desk,omitempty"`
	PractitionerData    *Practitioner  `json:"practitioner_data,omitempty"`
	FrontDeskData       *FrontDesk     `json:"front_desk_data,omitempty"`
	ProfileAbsent       bool           `json:"profile_absent,omitempty"`
	Appointment         *Appointment   `json:"appointment,omitempty"`
	UpdatedFields       map[string]any `json:"updated_fields,omitempty"`
	RestoredFrom        *uuid.UUID     `json:"restored_from,omitempty"`
}

func (d AuditDetails) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *AuditDetails) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = AuditDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported audit details source %T", src)
	}
}

// ValidateSnapshot checks that a DELETE payload carries enough state to
// reconstruct the named entity. Missing fields are an error; restoration
// never guess-fills. An account whose role implies a profile but owned none at
// deletion time must say so via ProfileAbsent, otherwise the entry is treated
// as truncated.
func (d AuditDetails) ValidateSnapshot(entityType EntityType) error {
	switch entityType {
	case EntityUser:
		if d.DeletedUser == nil || d.DeletedUser.ID == uuid.Nil {
			return errors.New("missing deleted_user snapshot")
		}
		if d.DeletedUser.Role == RolePractitioner && d.PractitionerData == nil && !d.ProfileAbsent {
			return errors.New("missing practitioner_data snapshot for practitioner account")
		}
		if d.DeletedUser.Role == RoleFrontDesk && d.FrontDeskData == nil && !d.ProfileAbsent {
			return errors.New("missing front_desk_data snapshot for front desk account")
		}
	case EntityPatient:
		if d.DeletedPatient == nil || d.DeletedPatient.ID == uuid.Nil {
			return errors.New("missing deleted_patient snapshot")
		}
	case EntityPractitioner:
		if d.DeletedPractitioner == nil || d.DeletedPractitioner.ID == uuid.Nil {
			return errors.New("missing deleted_practitioner snapshot")
		}
	case EntityFrontDesk:
		if d.DeletedFrontDesk == nil || d.DeletedFrontDesk.ID == uuid.Nil {
			return errors.New("missing deleted_front_desk snapshot")
		}
	default:
		return fmt.Errorf("entity type %q is not restorable", entityType)
	}
	return nil
}

// AuditLogEntry records one mutating action. Entries are append-only and
// immutable once written.
type AuditLogEntry struct {
	bun.BaseModel `bun:"table:audit_logs"`

	ID         uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	ActorID    uuid.UUID    `bun:"actor_id,notnull,type:uuid" json:"actor_id"`
	ActorName  string       `bun:"actor_name,notnull" json:"actor_name"`
	Action     AuditAction  `bun:"action,notnull" json:"action"`
	EntityType EntityType   `bun:"entity_type,notnull" json:"entity_type"`
	EntityID   uuid.UUID    `bun:"entity_id,type:uuid" json:"entity_id"`
	EntityName string       `bun:"entity_name" json:"entity_name"`
	Details    AuditDetails `bun:"details,type:jsonb" json:"details"`
	IPAddress  string       `bun:"ip_address" json:"ip_address"`
	UserAgent  string       `bun:"user_agent" json:"user_agent"`
	CreatedAt  time.Time    `bun:"created_at,notnull" json:"created_at"`
}

func (e *AuditLogEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
