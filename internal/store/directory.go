package store

import (
	"context"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
)

// DirectoryRepository owns the soft-deletable people records. Normal reads
// exclude soft-deleted rows; transactional work (deletion, restoration) goes
// through InTx so multi-entity writes commit or roll back together.
type DirectoryRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.UserAccount, error)
	GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error)
	GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error)
	GetFrontDesk(ctx context.Context, id uuid.UUID) (domain.FrontDesk, error)

	InTx(ctx context.Context, fn func(ctx context.Context, tx DirectoryTx) error) error
}

// DirectoryTx is the transaction-scoped view used by soft deletion and
// restoration. Find* with includeDeleted=true addresses rows past the normal
// read paths; Undelete* flips the soft-delete flags in place; Insert*
// recreates a row from a snapshot when the original is gone.
type DirectoryTx interface {
	FindUser(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.UserAccount, error)
	SoftDeleteUser(ctx context.Context, id, deletedBy uuid.UUID) (domain.UserAccount, error)
	UndeleteUser(ctx context.Context, id uuid.UUID) error
	InsertUser(ctx context.Context, u domain.UserAccount) error

	FindPatient(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Patient, error)
	SoftDeletePatient(ctx context.Context, id, deletedBy uuid.UUID) (domain.Patient, error)
	UndeletePatient(ctx context.Context, id uuid.UUID) error
	InsertPatient(ctx context.Context, p domain.Patient) error

	FindPractitioner(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Practitioner, error)
	FindPractitionerByName(ctx context.Context, name string, includeDeleted bool) (domain.Practitioner, error)
	SoftDeletePractitioner(ctx context.Context, id, deletedBy uuid.UUID) (domain.Practitioner, error)
	UndeletePractitioner(ctx context.Context, id uuid.UUID) error
	InsertPractitioner(ctx context.Context, p domain.Practitioner) error

	FindFrontDesk(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.FrontDesk, error)
	FindFrontDeskByName(ctx context.Context, name string, includeDeleted bool) (domain.FrontDesk, error)
	SoftDeleteFrontDesk(ctx context.Context, id, deletedBy uuid.UUID) (domain.FrontDesk, error)
	UndeleteFrontDesk(ctx context.Context, id uuid.UUID) error
	InsertFrontDesk(ctx context.Context, f domain.FrontDesk) error

	// AppendAuditEntry writes an audit entry inside the transaction. Used
	// only for RESTORE records, which must commit atomically with the
	// restoration itself.
	AppendAuditEntry(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error)
}
