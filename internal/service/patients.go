package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clinisafe/patientvault/internal/crypto"
	"github.com/clinisafe/patientvault/internal/errs"
	"github.com/clinisafe/patientvault/internal/model"
	"github.com/clinisafe/patientvault/internal/policy"
	"github.com/clinisafe/patientvault/internal/repository"
)

// obscuredContactFiller replaces the contact suffix when the stored contact is
// too short to keep its last four characters.
const obscuredContactFiller = "XXX-XXX-XXXX"

// PatientService mediates all reads and writes of patient records: role-scoped
// projection, reversible obscuring, retention sweep. Every mutation is audited.
type PatientService interface {
	// Add creates a record with the configured retention window and an optional
	// consent entry. All three text fields are required.
	Add(ctx context.Context, actor model.Identity, name, contact, diagnosis string, consent bool) (int64, error)
	// Edit overwrites raw fields and un-obscures the record, discarding any
	// stored ciphertext.
	Edit(ctx context.Context, actor model.Identity, id int64, name, contact, diagnosis string) error
	// Delete removes a record and its consent history. Admin only.
	Delete(ctx context.Context, actor model.Identity, id int64) error
	// List returns the role-scoped projection of all records, newest first.
	List(ctx context.Context, actor model.Identity, obscuredView bool) ([]model.ProjectedPatient, error)
	// ObscureAll masks and encrypts every record not yet obscured; returns how
	// many records were affected.
	ObscureAll(ctx context.Context, actor model.Identity) (int, error)
	// RestoreAll decrypts every obscured record back into its raw fields. Admin
	// only. Per-record decryption failures do not abort the batch; the failure
	// count is returned alongside the success count.
	RestoreAll(ctx context.Context, actor model.Identity) (restored, failed int, err error)
	// SweepExpired purges every record past its retention deadline.
	SweepExpired(ctx context.Context) (int64, error)
}

type PatientServiceImpl struct {
	repo      repository.PatientRepository
	cipher    *crypto.Cipher
	retention time.Duration
	now       func() time.Time

	// batchMu serializes ObscureAll/RestoreAll so two overlapping batches can
	// never leave mixed raw/ciphertext state.
	batchMu sync.Mutex
}

// NewPatientService constructs PatientService. The cipher and retention window
// are explicit dependencies: one cipher instance for the process lifetime, one
// configured window applied at creation time.
func NewPatientService(repo repository.PatientRepository, cipher *crypto.Cipher, retention time.Duration) *PatientServiceImpl {
	return &PatientServiceImpl{repo: repo, cipher: cipher, retention: retention, now: time.Now}
}

// Add validates the three text fields, stamps the retention deadline, and
// writes the record, consent entry, and audit row as one unit.
func (s *PatientServiceImpl) Add(
	ctx context.Context, actor model.Identity, name, contact, diagnosis string, consent bool,
) (int64, error) {
	if name == "" || contact == "" || diagnosis == "" {
		return 0, fmt.Errorf("%w: name, contact and diagnosis are required", errs.ErrValidation)
	}
	p := &model.Patient{
		Name:         name,
		Contact:      contact,
		Diagnosis:    diagnosis,
		RetainUntil:  s.now().Add(s.retention),
		ConsentGiven: consent,
	}
	var entry *model.ConsentEntry
	if consent {
		entry = &model.ConsentEntry{Type: DefaultConsentType, Given: true}
	}
	log := auditFor(actor, model.ActionAddPatient, fmt.Sprintf("Added new patient: %s", name))
	return s.repo.Create(ctx, p, entry, log)
}

// Edit overwrites the raw fields. Editing always un-obscures: the new raw
// values supersede any pre-edit ciphertext, which is discarded.
func (s *PatientServiceImpl) Edit(
	ctx context.Context, actor model.Identity, id int64, name, contact, diagnosis string,
) error {
	if name == "" || contact == "" || diagnosis == "" {
		return fmt.Errorf("%w: name, contact and diagnosis are required", errs.ErrValidation)
	}
	log := auditFor(actor, model.ActionUpdatePatient, fmt.Sprintf("Updated patient ID: %d", id))
	return s.repo.Update(ctx, id, name, contact, diagnosis, log)
}

// Delete removes a record and cascades its consent entries. Deleting an absent
// id fails with errs.ErrNotFound.
func (s *PatientServiceImpl) Delete(ctx context.Context, actor model.Identity, id int64) error {
	if !policy.CanDelete(actor.Role) {
		return fmt.Errorf("%w: role %s may not delete patients", errs.ErrForbidden, actor.Role)
	}
	log := auditFor(actor, model.ActionDeletePatient, fmt.Sprintf("Deleted patient ID: %d", id))
	return s.repo.Delete(ctx, id, log)
}

// List projects every record through the access policy for the actor's role.
func (s *PatientServiceImpl) List(ctx context.Context, actor model.Identity, obscuredView bool) ([]model.ProjectedPatient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProjectedPatient, 0, len(patients))
	for _, p := range patients {
		out = append(out, policy.Project(actor.Role, obscuredView, p))
	}
	return out, nil
}

// ObscureAll derives masked display values and encrypts the raw fields of
// every record with is_obscured=false. Raw plaintext stays in storage; the
// masked form is what non-raw projections display. Running it again with no
// new records affects nothing and returns 0.
func (s *PatientServiceImpl) ObscureAll(ctx context.Context, actor model.Identity) (int, error) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	patients, err := s.repo.ListByObscured(ctx, false)
	if err != nil {
		return 0, err
	}
	ups := make([]model.ObscureUpdate, 0, len(patients))
	for _, p := range patients {
		up := model.ObscureUpdate{
			ID:              p.ID,
			ObscuredName:    fmt.Sprintf("ANON_%04d", p.ID),
			ObscuredContact: maskContact(p.Contact),
		}
		if up.CipherName, err = s.cipher.Obscure(p.Name); err != nil {
			return 0, fmt.Errorf("obscure patient %d: %w", p.ID, err)
		}
		if up.CipherContact, err = s.cipher.Obscure(p.Contact); err != nil {
			return 0, fmt.Errorf("obscure patient %d: %w", p.ID, err)
		}
		if up.CipherDiagnosis, err = s.cipher.Obscure(p.Diagnosis); err != nil {
			return 0, fmt.Errorf("obscure patient %d: %w", p.ID, err)
		}
		ups = append(ups, up)
	}
	log := auditFor(actor, model.ActionObscureData, fmt.Sprintf("Anonymized %d patient records", len(ups)))
	if err := s.repo.ApplyObscure(ctx, ups, log); err != nil {
		return 0, err
	}
	return len(ups), nil
}

// RestoreAll decrypts every obscured record under the active key and writes
// the plaintext back into the raw fields. A record whose ciphertext does not
// verify (key rotated, corrupt token) is counted as failed and skipped; the
// rest of the batch proceeds.
func (s *PatientServiceImpl) RestoreAll(ctx context.Context, actor model.Identity) (restored, failed int, err error) {
	if !policy.CanRestore(actor.Role) {
		return 0, 0, fmt.Errorf("%w: role %s may not restore patient data", errs.ErrForbidden, actor.Role)
	}

	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	patients, err := s.repo.ListByObscured(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	ups := make([]model.RestoreUpdate, 0, len(patients))
	for _, p := range patients {
		if p.CipherName == "" || p.CipherContact == "" || p.CipherDiagnosis == "" {
			failed++
			continue
		}
		up := model.RestoreUpdate{ID: p.ID}
		var derr error
		if up.Name, derr = s.cipher.Restore(p.CipherName); derr == nil {
			if up.Contact, derr = s.cipher.Restore(p.CipherContact); derr == nil {
				up.Diagnosis, derr = s.cipher.Restore(p.CipherDiagnosis)
			}
		}
		if derr != nil {
			if errors.Is(derr, errs.ErrDecryption) {
				failed++
				continue
			}
			return 0, 0, derr
		}
		ups = append(ups, up)
	}
	log := auditFor(actor, model.ActionRestoreData, fmt.Sprintf("De-anonymized %d patient records", len(ups)))
	if err := s.repo.ApplyRestore(ctx, ups, log); err != nil {
		return 0, 0, err
	}
	return len(ups), failed, nil
}

// SweepExpired purges records past their retention deadline. Idempotent:
// nothing expired means count 0.
func (s *PatientServiceImpl) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

// maskContact keeps the last four characters behind a fixed prefix, or a fixed
// filler when the contact is shorter than four characters.
func maskContact(contact string) string {
	if len(contact) < 4 {
		return obscuredContactFiller
	}
	return "XXX-XXX-" + contact[len(contact)-4:]
}

func auditFor(actor model.Identity, action, details string) model.AuditEntry {
	return model.AuditEntry{
		UserID:   actor.UserID,
		Username: actor.Username,
		Role:     actor.Role,
		Action:   action,
		Details:  details,
	}
}
