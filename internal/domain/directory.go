package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RolePractitioner Role = "practitioner"
	RoleFrontDesk    Role = "front_desk"
)

// HasDependentProfile reports whether accounts with this role own a
// professional profile row that soft-deletes and restores together with the
// account.
func (r Role) HasDependentProfile() bool {
	return r == RolePractitioner || r == RoleFrontDesk
}

// SoftDelete marks a row inactive instead of removing it. Soft-deleted rows
// are excluded from normal reads but stay addressable by id for restoration.
type SoftDelete struct {
	IsDeleted bool       `bun:"is_deleted,notnull,default:false" json:"is_deleted"`
	DeletedAt *time.Time `bun:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy *uuid.UUID `bun:"deleted_by,type:uuid" json:"deleted_by,omitempty"`
}

func (s *SoftDelete) MarkDeleted(by uuid.UUID, at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
	s.DeletedBy = &by
}

func (s *SoftDelete) ClearDeleted() {
	s.IsDeleted = false
	s.DeletedAt = nil
	s.DeletedBy = nil
}

// UserAccount is a staff login. ProfileID links the account to its dependent
// professional profile; the historical name match is kept only as a restore
// shim for rows created before the column existed.
type UserAccount struct {
	bun.BaseModel `bun:"table:user_accounts"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username  string     `bun:"username,notnull" json:"username"`
	Name      string     `bun:"name,notnull" json:"name"`
	Role      Role       `bun:"role,notnull" json:"role"`
	ProfileID *uuid.UUID `bun:"profile_id,type:uuid" json:"profile_id,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updated_at"`

	SoftDelete
}

func (u *UserAccount) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return touchTimestamps(query, &u.ID, &u.CreatedAt, &u.UpdatedAt)
}

type Practitioner struct {
	bun.BaseModel `bun:"table:practitioners"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Specialty string    `bun:"specialty" json:"specialty"`
	Email     string    `bun:"email" json:"email"`
	Phone     string    `bun:"phone" json:"phone"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	SoftDelete
}

func (p *Practitioner) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return touchTimestamps(query, &p.ID, &p.CreatedAt, &p.UpdatedAt)
}

type FrontDesk struct {
	bun.BaseModel `bun:"table:front_desk_staff"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email" json:"email"`
	Phone     string    `bun:"phone" json:"phone"`
	Shift     string    `bun:"shift" json:"shift"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	SoftDelete
}

func (f *FrontDesk) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return touchTimestamps(query, &f.ID, &f.CreatedAt, &f.UpdatedAt)
}

type Patient struct {
	bun.BaseModel `bun:"table:patients"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name      string     `bun:"name,notnull" json:"name"`
	Email     string     `bun:"email" json:"email"`
	Phone     string     `bun:"phone" json:"phone"`
	BirthDate *time.Time `bun:"birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updated_at"`

	SoftDelete
}

func (p *Patient) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return touchTimestamps(query, &p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func touchTimestamps(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v7, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v7
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
