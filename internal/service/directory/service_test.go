package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"clinicdesk/backend/internal/domain"
	"clinicdesk/backend/internal/store"
)

type memDirectory struct {
	users         map[uuid.UUID]domain.UserAccount
	practitioners map[uuid.UUID]domain.Practitioner
	frontDesk     map[uuid.UUID]domain.FrontDesk
	patients      map[uuid.UUID]domain.Patient

	failSoftDeleteProfile bool
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:         map[uuid.UUID]domain.UserAccount{},
		practitioners: map[uuid.UUID]domain.Practitioner{},
		frontDesk:     map[uuid.UUID]domain.FrontDesk{},
		patients:      map[uuid.UUID]domain.Patient{},
	}
}

func (m *memDirectory) GetUser(ctx context.Context, id uuid.UUID) (domain.UserAccount, error) {
	u, ok := m.users[id]
	if !ok || u.IsDeleted {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memDirectory) GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.IsDeleted {
		return domain.Patient{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memDirectory) GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error) {
	p, ok := m.practitioners[id]
	if !ok || p.IsDeleted {
		return domain.Practitioner{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memDirectory) GetFrontDesk(ctx context.Context, id uuid.UUID) (domain.FrontDesk, error) {
	f, ok := m.frontDesk[id]
	if !ok || f.IsDeleted {
		return domain.FrontDesk{}, store.ErrNotFound
	}
	return f, nil
}

func (m *memDirectory) InTx(ctx context.Context, fn func(ctx context.Context, tx store.DirectoryTx) error) error {
	users := cloneMap(m.users)
	practitioners := cloneMap(m.practitioners)
	frontDesk := cloneMap(m.frontDesk)
	patients := cloneMap(m.patients)

	if err := fn(ctx, (*memTx)(m)); err != nil {
		m.users = users
		m.practitioners = practitioners
		m.frontDesk = frontDesk
		m.patients = patients
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memTx memDirectory

func (t *memTx) FindUser(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.UserAccount, error) {
	u, ok := t.users[id]
	if !ok || (!includeDeleted && u.IsDeleted) {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return u, nil
}

func (t *memTx) SoftDeleteUser(ctx context.Context, id, deletedBy uuid.UUID) (domain.UserAccount, error) {
	u, ok := t.users[id]
	if !ok || u.IsDeleted {
		return domain.UserAccount{}, store.ErrNotFound
	}
	u.MarkDeleted(deletedBy, time.Now().UTC())
	t.users[id] = u
	return u, nil
}

func (t *memTx) UndeleteUser(ctx context.Context, id uuid.UUID) error { panic("not used") }

func (t *memTx) InsertUser(ctx context.Context, u domain.UserAccount) error { panic("not used") }

func (t *memTx) FindPatient(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Patient, error) {
	p, ok := t.patients[id]
	if !ok || (!includeDeleted && p.IsDeleted) {
		return domain.Patient{}, store.ErrNotFound
	}
	return p, nil
}

func (t *memTx) SoftDeletePatient(ctx context.Context, id, deletedBy uuid.UUID) (domain.Patient, error) {
	p, ok := t.patients[id]
	if !ok || p.IsDeleted {
		return domain.Patient{}, store.ErrNotFound
	}
	p.MarkDeleted(deletedBy, time.Now().UTC())
	t.patients[id] = p
	return p, nil
}

func (t *memTx) UndeletePatient(ctx context.Context, id uuid.UUID) error { panic("not used") }

func (t *memTx) InsertPatient(ctx context.Context, p domain.Patient) error { panic("not used") }

func (t *memTx) FindPractitioner(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.Practitioner, error) {
	p, ok := t.practitioners[id]
	if !ok || (!includeDeleted && p.IsDeleted) {
		return domain.Practitioner{}, store.ErrNotFound
	}
	return p, nil
}

func (t *memTx) FindPractitionerByName(ctx context.Context, name string, includeDeleted bool) (domain.Practitioner, error) {
	for _, p := range t.practitioners {
		if p.Name == name && (includeDeleted || !p.IsDeleted) {
			return p, nil
		}
	}
	return domain.Practitioner{}, store.ErrNotFound
}

func (t *memTx) SoftDeletePractitioner(ctx context.Context, id, deletedBy uuid.UUID) (domain.Practitioner, error) {
	if t.failSoftDeleteProfile {
		return domain.Practitioner{}, errors.New("profile delete failed")
	}
	p, ok := t.practitioners[id]
	if !ok || p.IsDeleted {
		return domain.Practitioner{}, store.ErrNotFound
	}
	p.MarkDeleted(deletedBy, time.Now().UTC())
	t.practitioners[id] = p
	return p, nil
}

func (t *memTx) UndeletePractitioner(ctx context.Context, id uuid.UUID) error { panic("not used") }

func (t *memTx) InsertPractitioner(ctx context.Context, p domain.Practitioner) error {
	panic("not used")
}

func (t *memTx) FindFrontDesk(ctx context.Context, id uuid.UUID, includeDeleted bool) (domain.FrontDesk, error) {
	f, ok := t.frontDesk[id]
	if !ok || (!includeDeleted && f.IsDeleted) {
		return domain.FrontDesk{}, store.ErrNotFound
	}
	return f, nil
}

func (t *memTx) FindFrontDeskByName(ctx context.Context, name string, includeDeleted bool) (domain.FrontDesk, error) {
	for _, f := range t.frontDesk {
		if f.Name == name && (includeDeleted || !f.IsDeleted) {
			return f, nil
		}
	}
	return domain.FrontDesk{}, store.ErrNotFound
}

func (t *memTx) SoftDeleteFrontDesk(ctx context.Context, id, deletedBy uuid.UUID) (domain.FrontDesk, error) {
	f, ok := t.frontDesk[id]
	if !ok || f.IsDeleted {
		return domain.FrontDesk{}, store.ErrNotFound
	}
	f.MarkDeleted(deletedBy, time.Now().UTC())
	t.frontDesk[id] = f
	return f, nil
}

func (t *memTx) UndeleteFrontDesk(ctx context.Context, id uuid.UUID) error { panic("not used") }

func (t *memTx) InsertFrontDesk(ctx context.Context, f domain.FrontDesk) error { panic("not used") }

func (t *memTx) AppendAuditEntry(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	panic("not used")
}

type captureSink struct {
	entries []domain.AuditLogEntry
}

func (c *captureSink) Record(entry domain.AuditLogEntry) {
	c.entries = append(c.entries, entry)
}

var (
	userID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	profID  = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	actorID = uuid.MustParse("00000000-0000-0000-0000-000000000099")
)

func testActor() domain.Actor {
	return domain.Actor{ID: actorID, Name: "Admin", Role: domain.RoleAdmin}
}

func TestDeleteUser_PractitionerProfileDeletedAndSnapshotted(t *testing.T) {
	dir := newMemDirectory()
	dir.users[userID] = domain.UserAccount{
		ID:        userID,
		Username:  "drsmith",
		Name:      "Dr Smith",
		Role:      domain.RolePractitioner,
		ProfileID: &profID,
	}
	dir.practitioners[profID] = domain.Practitioner{ID: profID, Name: "Dr Smith", Specialty: "endodontics"}

	sink := &captureSink{}
	svc := NewService(dir, sink)

	if err := svc.DeleteUser(context.Background(), testActor(), userID); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}

	if !dir.users[userID].IsDeleted {
		t.Fatalf("user not soft-deleted")
	}
	if !dir.practitioners[profID].IsDeleted {
		t.Fatalf("dependent profile not soft-deleted")
	}
	if len(sink.entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.Action != domain.ActionDelete || entry.EntityType != domain.EntityUser {
		t.Fatalf("entry = %s/%s, want DELETE/user", entry.Action, entry.EntityType)
	}
	if entry.Details.DeletedUser == nil || entry.Details.DeletedUser.ID != userID {
		t.Fatalf("missing deleted_user snapshot")
	}
	if entry.Details.PractitionerData == nil {
		t.Fatalf("missing practitioner_data snapshot")
	}
	if entry.Details.PractitionerData.Specialty != "endodontics" {
		t.Fatalf("specialty = %q, want snapshot value", entry.Details.PractitionerData.Specialty)
	}
	if err := entry.Details.ValidateSnapshot(domain.EntityUser); err != nil {
		t.Fatalf("snapshot does not round-trip: %v", err)
	}
}

func TestDeleteUser_LegacyNameLinkedProfile(t *testing.T) {
	otherID := uuid.MustParse("00000000-0000-0000-0000-00000000bbbb")
	dir := newMemDirectory()
	dir.users[userID] = domain.UserAccount{
		ID:       userID,
		Username: "maria",
		Name:     "Maria",
		Role:     domain.RoleFrontDesk,
	}
	dir.frontDesk[otherID] = domain.FrontDesk{ID: otherID, Name: "Maria", Shift: "morning"}

	sink := &captureSink{}
	svc := NewService(dir, sink)

	if err := svc.DeleteUser(context.Background(), testActor(), userID); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}
	if !dir.frontDesk[otherID].IsDeleted {
		t.Fatalf("name-linked profile not soft-deleted")
	}
	if sink.entries[0].Details.FrontDeskData == nil {
		t.Fatalf("missing front_desk_data snapshot")
	}
}

func TestDeleteUser_OrphanAccountStillDeletes(t *testing.T) {
	dir := newMemDirectory()
	dir.users[userID] = domain.UserAccount{
		ID:       userID,
		Username: "ghost",
		Name:     "No Profile",
		Role:     domain.RolePractitioner,
	}

	sink := &captureSink{}
	svc := NewService(dir, sink)

	if err := svc.DeleteUser(context.Background(), testActor(), userID); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}
	if !dir.users[userID].IsDeleted {
		t.Fatalf("user not soft-deleted")
	}
	if sink.entries[0].Details.PractitionerData != nil {
		t.Fatalf("unexpected practitioner snapshot for orphan account")
	}
	if !sink.entries[0].Details.ProfileAbsent {
		t.Fatalf("entry does not record that no profile existed")
	}
	// The entry must stay restorable even though no profile was captured.
	if err := sink.entries[0].Details.ValidateSnapshot(domain.EntityUser); err != nil {
		t.Fatalf("snapshot rejected: %v", err)
	}
}

func TestDeleteUser_ProfileFailureRollsBackUser(t *testing.T) {
	dir := newMemDirectory()
	dir.users[userID] = domain.UserAccount{
		ID:        userID,
		Username:  "drsmith",
		Name:      "Dr Smith",
		Role:      domain.RolePractitioner,
		ProfileID: &profID,
	}
	dir.practitioners[profID] = domain.Practitioner{ID: profID, Name: "Dr Smith"}
	dir.failSoftDeleteProfile = true

	sink := &captureSink{}
	svc := NewService(dir, sink)

	if err := svc.DeleteUser(context.Background(), testActor(), userID); err == nil {
		t.Fatalf("expected error")
	}
	if dir.users[userID].IsDeleted {
		t.Fatalf("user deleted despite failed transaction")
	}
	if len(sink.entries) != 0 {
		t.Fatalf("audit entry recorded for failed deletion")
	}
}

func TestDeletePatient_RecordsSnapshot(t *testing.T) {
	patientID := uuid.MustParse("00000000-0000-0000-0000-000000000042")
	dir := newMemDirectory()
	dir.patients[patientID] = domain.Patient{ID: patientID, Name: "Pat"}

	sink := &captureSink{}
	svc := NewService(dir, sink)

	if err := svc.DeletePatient(context.Background(), testActor(), patientID); err != nil {
		t.Fatalf("DeletePatient error: %v", err)
	}
	if !dir.patients[patientID].IsDeleted {
		t.Fatalf("patient not soft-deleted")
	}
	entry := sink.entries[0]
	if entry.EntityType != domain.EntityPatient || entry.Details.DeletedPatient == nil {
		t.Fatalf("bad audit entry: %+v", entry)
	}
	if entry.Details.DeletedPatient.DeletedBy == nil || *entry.Details.DeletedPatient.DeletedBy != actorID {
		t.Fatalf("deleted_by not captured")
	}
}

func TestDeleteUser_MissingUser(t *testing.T) {
	svc := NewService(newMemDirectory(), nil)
	err := svc.DeleteUser(context.Background(), testActor(), userID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestDeleteUser_NilIDValidation(t *testing.T) {
	svc := NewService(newMemDirectory(), nil)
	err := svc.DeleteUser(context.Background(), testActor(), uuid.Nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}
