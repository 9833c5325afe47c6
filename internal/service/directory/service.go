package directory

import (
	"context"
	"errors"

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

// Service owns the soft-delete side of the people records. Each deletion
// captures the pre-deletion snapshot (dependent profile included) before any
// destructive write, commits the soft delete in one transaction, and emits
// the DELETE audit entry after commit.
type Service struct {
	repo     store.DirectoryRepository
	recorder audit.Sink
}

func NewService(repo store.DirectoryRepository, recorder audit.Sink) *Service {
	if recorder == nil {
		recorder = audit.NopSink{}
	}
	return &Service{repo: repo, recorder: recorder}
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (domain.UserAccount, error) {
	if id == uuid.Nil {
		return domain.UserAccount{}, validationError("user_id is required")
	}
	return s.repo.GetUser(ctx, id)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	if id == uuid.Nil {
		return domain.Patient{}, validationError("patient_id is required")
	}
	return s.repo.GetPatient(ctx, id)
}

func (s *Service) GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error) {
	if id == uuid.Nil {
		return domain.Practitioner{}, validationError("practitioner_id is required")
	}
	return s.repo.GetPractitioner(ctx, id)
}

func (s *Service) GetFrontDesk(ctx context.Context, id uuid.UUID) (domain.FrontDesk, error) {
	if id == uuid.Nil {
		return domain.FrontDesk{}, validationError("front_desk_id is required")
	}
	return s.repo.GetFrontDesk(ctx, id)
}

// DeleteUser soft-deletes a staff account. When the account's role implies a
// dependent professional profile, the profile is soft-deleted in the same
// transaction and both snapshots land in the audit entry, so the deletion is
// reversible as a unit.
func (s *Service) DeleteUser(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("user_id is required")
	}

	var (
		deleted          domain.UserAccount
		practitionerSnap *domain.Practitioner
		frontDeskSnap    *domain.FrontDesk
		profileAbsent    bool
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx store.DirectoryTx) error {
		user, err := tx.FindUser(ctx, id, false)
		if err != nil {
			return err
		}

		// Snapshot the dependent profile before anything is written. An
		// account can legitimately own no profile row; the audit entry has to
		// say so explicitly or it will look truncated at restore time.
		switch user.Role {
		case domain.RolePractitioner:
			p, err := findPractitionerProfile(ctx, tx, user)
			switch {
			case err == nil:
				practitionerSnap = &p
			case errors.Is(err, store.ErrNotFound):
				profileAbsent = true
			default:
				return err
			}
		case domain.RoleFrontDesk:
			f, err := findFrontDeskProfile(ctx, tx, user)
			switch {
			case err == nil:
				frontDeskSnap = &f
			case errors.Is(err, store.ErrNotFound):
				profileAbsent = true
			default:
				return err
			}
		}

		deleted, err = tx.SoftDeleteUser(ctx, id, actor.ID)
		if err != nil {
			return err
		}

		if practitionerSnap != nil {
			p, err := tx.SoftDeletePractitioner(ctx, practitionerSnap.ID, actor.ID)
			if err != nil {
				return err
			}
			practitionerSnap = &p
		}
		if frontDeskSnap != nil {
			f, err := tx.SoftDeleteFrontDesk(ctx, frontDeskSnap.ID, actor.ID)
			if err != nil {
				return err
			}
			frontDeskSnap = &f
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionDelete,
		EntityType: domain.EntityUser,
		EntityID:   deleted.ID,
		EntityName: deleted.Name,
		Details: domain.AuditDetails{
			DeletedUser:      &deleted,
			PractitionerData: practitionerSnap,
			FrontDeskData:    frontDeskSnap,
			ProfileAbsent:    profileAbsent,
		},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("patient_id is required")
	}

	var deleted domain.Patient
	err := s.repo.InTx(ctx, func(ctx context.Context, tx store.DirectoryTx) error {
		var err error
		deleted, err = tx.SoftDeletePatient(ctx, id, actor.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionDelete,
		EntityType: domain.EntityPatient,
		EntityID:   deleted.ID,
		EntityName: deleted.Name,
		Details:    domain.AuditDetails{DeletedPatient: &deleted},
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return nil
}

func (s *Service) DeletePractitioner(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("practitioner_id is required")
	}

	var deleted domain.Practitioner
	err := s.repo.InTx(ctx, func(ctx context.Context, tx store.DirectoryTx) error {
		var err error
		deleted, err = tx.SoftDeletePractitioner(ctx, id, actor.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionDelete,
		EntityType: domain.EntityPractitioner,
		EntityID:   deleted.ID,
		EntityName: deleted.Name,
		Details:    domain.AuditDetails{DeletedPractitioner: &deleted},
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return nil
}

func (s *Service) DeleteFrontDesk(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("front_desk_id is required")
	}

	var deleted domain.FrontDesk
	err := s.repo.InTx(ctx, func(ctx context.Context, tx store.DirectoryTx) error {
		var err error
		deleted, err = tx.SoftDeleteFrontDesk(ctx, id, actor.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.recorder.Record(domain.AuditLogEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     domain.ActionDelete,
		EntityType: domain.EntityFrontDesk,
		EntityID:   deleted.ID,
		EntityName: deleted.Name,
		Details:    domain.AuditDetails{DeletedFrontDesk: &deleted},
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return nil
}

func findPractitionerProfile(ctx context.Context, tx store.DirectoryTx, user domain.UserAccount) (domain.Practitioner, error) {
	if user.ProfileID != nil {
		return tx.FindPractitioner(ctx, *user.ProfileID, false)
	}
	// Legacy rows predate the profile_id column and link by display name.
	return tx.FindPractitionerByName(ctx, user.Name, false)
}

func findFrontDeskProfile(ctx context.Context, tx store.DirectoryTx, user domain.UserAccount) (domain.FrontDesk, error) {
	if user.ProfileID != nil {
		return tx.FindFrontDesk(ctx, *user.ProfileID, false)
	}
	return tx.FindFrontDeskByName(ctx, user.Name, false)
}
