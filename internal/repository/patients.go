package repository

import (
	"context"
	"time"

	"github.com/clinisafe/patientvault/internal/model"
)

// PatientRepository owns patient records. Every mutating method runs as one
// transaction covering the record change, any consent cascade, and the audit
// insert: all visible or none.
type PatientRepository interface {
	// Create inserts a patient, its optional consent entry, and the audit row.
	Create(ctx context.Context, p *model.Patient, consent *model.ConsentEntry, log model.AuditEntry) (int64, error)

	// Update overwrites the raw fields, clears any obscured state, and writes
	// the audit row. Returns errs.ErrNotFound for an absent id.
	Update(ctx context.Context, id int64, name, contact, diagnosis string, log model.AuditEntry) error

	// Delete removes the patient and cascades its consent entries.
	// Returns errs.ErrNotFound for an absent id.
	Delete(ctx context.Context, id int64, log model.AuditEntry) error

	// List returns all patients, most recently created first.
	List(ctx context.Context) ([]model.Patient, error)

	// ListByObscured returns patients filtered by obscured state.
	ListByObscured(ctx context.Context, obscured bool) ([]model.Patient, error)

	// ApplyObscure stores masked and encrypted values for a batch of records
	// and marks them obscured, plus one audit row for the whole batch.
	ApplyObscure(ctx context.Context, ups []model.ObscureUpdate, log model.AuditEntry) error

	// ApplyRestore writes decrypted raw values back for a batch of records and
	// clears the obscured flag, plus one audit row for the whole batch.
	ApplyRestore(ctx context.Context, ups []model.RestoreUpdate, log model.AuditEntry) error

	// DeleteExpired purges every record past its retention deadline, cascading
	// consent entries and writing one audit row per deleted record.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
