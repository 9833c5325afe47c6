package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/store"
)

// Result describes the entity a restore call brought back.
type Result struct {
	EntityType domain.EntityType `json:"entity_type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	EntityName string            `json:"entity_name"`
	AuditLogID uuid.UUID         `json:"audit_log_id"`
}

// Coordinator reverses soft deletions recorded in the audit trail. The whole
// restoration, dependent profiles included, happens in one transaction;
// partial restores are never observable.
type Coordinator struct {
	audit     store.AuditRepository
	directory store.DirectoryRepository
	log       *slog.Logger
}

func NewCoordinator(audit store.AuditRepository, directory store.DirectoryRepository, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		audit:     audit,
		directory: directory,
		log:       log.With(slog.String("component", "restore.coordinator")),
	}
}

// Restore is a single attempt: it either commits the full restoration or
// rolls everything back and reports why. Retries are the caller's concern.
func (c *Coordinator) Restore(ctx context.Context, logID uuid.UUID, actor domain.Actor) (Result, error) {
	entry, err := c.audit.Get(ctx, logID)
	if err != nil {
		return Result{}, err
	}
	if entry.Action != domain.ActionDelete {
		return Result{}, fmt.Errorf("log entry %s is not a deletion: %w", logID, store.ErrNotFound)
	}
	if err := entry.Details.ValidateSnapshot(entry.EntityType); err != nil {
		return Result{}, fmt.Errorf("%s: %w", err, store.ErrInvalidState)
	}

	var out Result
	err = c.directory.InTx(ctx, func(ctx context.Context, tx store.DirectoryTx) error {
		restored, err := c.restoreEntity(ctx, tx, entry)
		if err != nil {
			return err
		}

		auditEntry, err := tx.AppendAuditEntry(ctx, domain.AuditLogEntry{
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Action:     domain.ActionRestore,
			EntityType: entry.EntityType,
			EntityID:   restored.EntityID,
			EntityName: restored.EntityName,
			Details:    domain.AuditDetails{RestoredFrom: &entry.ID},
			IPAddress:  actor.IPAddress,
			UserAgent:  actor.UserAgent,
		})
		if err != nil {
			return err
		}

		restored.AuditLogID = auditEntry.ID
		out = restored
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	c.log.Info(
		"entity restored",
		slog.String("entity_type", string(out.EntityType)),
		slog.String("entity_id", out.EntityID.String()),
		slog.String("restored_from", entry.ID.String()),
		slog.String("actor_id", actor.ID.String()),
	)
	return out, nil
}

func (c *Coordinator) restoreEntity(ctx context.Context, tx store.DirectoryTx, entry domain.AuditLogEntry) (Result, error) {
	switch entry.EntityType {
	case domain.EntityUser:
		return c.restoreUser(ctx, tx, entry.Details)
	case domain.EntityPatient:
		snap := *entry.Details.DeletedPatient
		current, err := tx.FindPatient(ctx, snap.ID, true)
		switch {
		case err == nil && !current.IsDeleted:
			return Result{}, store.ErrAlreadyRestored
		case err == nil:
			err = tx.UndeletePatient(ctx, snap.ID)
		case errors.Is(err, store.ErrNotFound):
			err = tx.InsertPatient(ctx, snap)
		}
		if err != nil {
			return Result{}, err
		}
		return Result{EntityType: domain.EntityPatient, EntityID: snap.ID, EntityName: snap.Name}, nil
	case domain.EntityPractitioner:
		snap := *entry.Details.DeletedPractitioner
		current, err := tx.FindPractitioner(ctx, snap.ID, true)
		switch {
		case err == nil && !current.IsDeleted:
			return Result{}, store.ErrAlreadyRestored
		case err == nil:
			err = tx.UndeletePractitioner(ctx, snap.ID)
		case errors.Is(err, store.ErrNotFound):
			err = tx.InsertPractitioner(ctx, snap)
		}
		if err != nil {
			return Result{}, err
		}
		return Result{EntityType: domain.EntityPractitioner, EntityID: snap.ID, EntityName: snap.Name}, nil
	case domain.EntityFrontDesk:
		snap := *entry.Details.DeletedFrontDesk
		current, err := tx.FindFrontDesk(ctx, snap.ID, true)
		switch {
		case err == nil && !current.IsDeleted:
			return Result{}, store.ErrAlreadyRestored
		case err == nil:
			err = tx.UndeleteFrontDesk(ctx, snap.ID)
		case errors.Is(err, store.ErrNotFound):
			err = tx.InsertFrontDesk(ctx, snap)
		}
		if err != nil {
			return Result{}, err
		}
		return Result{EntityType: domain.EntityFrontDesk, EntityID: snap.ID, EntityName: snap.Name}, nil
	default:
		return Result{}, fmt.Errorf("entity type %q is not restorable: %w", entry.EntityType, store.ErrInvalidState)
	}
}

func (c *Coordinator) restoreUser(ctx context.Context, tx store.DirectoryTx, details domain.AuditDetails) (Result, error) {
	snap := *details.DeletedUser

	current, err := tx.FindUser(ctx, snap.ID, true)
	switch {
	case err == nil && !current.IsDeleted:
		return Result{}, store.ErrAlreadyRestored
	case err == nil:
		if err := tx.UndeleteUser(ctx, snap.ID); err != nil {
			return Result{}, err
		}
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertUser(ctx, snap); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, err
	}

	// A nil profile snapshot here means the entry's ProfileAbsent marker
	// passed validation: the account owned no profile when it was deleted, so
	// there is nothing dependent to bring back.
	switch snap.Role {
	case domain.RolePractitioner:
		if details.PractitionerData != nil {
			if err := c.restoreDependentPractitioner(ctx, tx, snap, *details.PractitionerData); err != nil {
				return Result{}, err
			}
		}
	case domain.RoleFrontDesk:
		if details.FrontDeskData != nil {
			if err := c.restoreDependentFrontDesk(ctx, tx, snap, *details.FrontDeskData); err != nil {
				return Result{}, err
			}
		}
	}

	return Result{EntityType: domain.EntityUser, EntityID: snap.ID, EntityName: snap.Name}, nil
}

// restoreDependentPractitioner brings back the profile a practitioner account
// owns. Lookup prefers the explicit profile_id link; the name match is a shim
// for rows created before the column existed. Undeleting an existing row wins
// over inserting, so a double restore never duplicates the profile.
func (c *Coordinator) restoreDependentPractitioner(ctx context.Context, tx store.DirectoryTx, user domain.UserAccount, snap domain.Practitioner) error {
	profileID := snap.ID
	if user.ProfileID != nil {
		profileID = *user.ProfileID
	}

	existing, err := tx.FindPractitioner(ctx, profileID, true)
	if errors.Is(err, store.ErrNotFound) {
		existing, err = tx.FindPractitionerByName(ctx, user.Name, true)
	}
	switch {
	case err == nil && existing.IsDeleted:
		return tx.UndeletePractitioner(ctx, existing.ID)
	case err == nil:
		// Profile already active; nothing to restore.
		return nil
	case errors.Is(err, store.ErrNotFound):
		return tx.InsertPractitioner(ctx, snap)
	default:
		return err
	}
}

func (c *Coordinator) restoreDependentFrontDesk(ctx context.Context, tx store.DirectoryTx, user domain.UserAccount, snap domain.FrontDesk) error {
	profileID := snap.ID
	if user.ProfileID != nil {
		profileID = *user.ProfileID
	}

	existing, err := tx.FindFrontDesk(ctx, profileID, true)
	if errors.Is(err, store.ErrNotFound) {
		existing, err = tx.FindFrontDeskByName(ctx, user.Name, true)
	}
	switch {
	case err == nil && existing.IsDeleted:
		return tx.UndeleteFrontDesk(ctx, existing.ID)
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return tx.InsertFrontDesk(ctx, snap)
	default:
		return err
	}
}
